package session

import (
	"sync"

	"pharmafront/internal/service"
)

// State is everything the front end keeps for one browser. Only the auth
// token outlives a logout; builders and list views are transient.
type State struct {
	id   string
	Auth *service.AuthState
	Cart *service.Cart

	mu       sync.Mutex
	builders map[string]*service.OrderBuilder
	views    map[string]any
}

func NewState(id string, auth *service.AuthState, cart *service.Cart) *State {
	s := &State{
		id:       id,
		Auth:     auth,
		Cart:     cart,
		builders: make(map[string]*service.OrderBuilder),
		views:    make(map[string]any),
	}
	// anything built under one identity is dropped when it goes away
	auth.Subscribe(func() {
		if !auth.LoggedIn() {
			s.dropTransient()
		}
	})
	return s
}

func (s *State) ID() string { return s.id }

func (s *State) Builder(id string) (*service.OrderBuilder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.builders[id]
	return b, ok
}

func (s *State) PutBuilder(b *service.OrderBuilder) {
	s.mu.Lock()
	s.builders[b.ID()] = b
	s.mu.Unlock()
}

// CloseBuilder resets the builder and forgets it.
func (s *State) CloseBuilder(id string) bool {
	s.mu.Lock()
	b, ok := s.builders[id]
	delete(s.builders, id)
	s.mu.Unlock()
	if ok {
		b.Close()
	}
	return ok
}

func (s *State) BuilderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.builders)
}

// View returns the named list view, creating it on first use.
func View[T any](s *State, name string, create func() *service.ListView[T]) *service.ListView[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.views[name].(*service.ListView[T]); ok {
		return v
	}
	v := create()
	s.views[name] = v
	return v
}

// Clear logs out and drops all transient state.
func (s *State) Clear() {
	s.Auth.Clear()
	s.dropTransient()
}

func (s *State) dropTransient() {
	s.mu.Lock()
	builders := s.builders
	s.builders = make(map[string]*service.OrderBuilder)
	s.views = make(map[string]any)
	s.mu.Unlock()
	for _, b := range builders {
		b.Close()
	}
	s.Cart.Clear()
}
