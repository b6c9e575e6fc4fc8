package session

import (
	"testing"
	"time"

	"pharmafront/internal/service"
)

func newTestState(id string) *State {
	return NewState(id, service.NewAuthState(nil), service.NewCart(nil))
}

func TestCodec_RoundTripAndTamper(t *testing.T) {
	c := NewCodec("secret")
	v := c.Encode("abc-123")
	id, err := c.Decode(v)
	if err != nil || id != "abc-123" {
		t.Fatalf("decode: %q %v", id, err)
	}
	for _, bad := range []string{"", "abc-123", "abc-124." + v[len("abc-123."):], v + "x", ".sig", "a.b.c"} {
		if _, err := c.Decode(bad); err != ErrInvalidCookie {
			t.Fatalf("%q: expected ErrInvalidCookie, got %v", bad, err)
		}
	}
	if _, err := NewCodec("other").Decode(v); err != ErrInvalidCookie {
		t.Fatalf("foreign secret must not verify")
	}
}

func TestStore_TTLAndSweep(t *testing.T) {
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	s := NewStore(time.Hour, newTestState)
	s.now = func() time.Time { return now }

	a := s.Create()
	b := s.Create()
	if a.ID() == b.ID() {
		t.Fatalf("ids must be unique")
	}

	now = now.Add(40 * time.Minute)
	if _, ok := s.Get(a.ID()); !ok {
		t.Fatalf("a must be alive")
	}
	now = now.Add(40 * time.Minute)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("expected b to expire, swept %d", n)
	}
	if _, ok := s.Get(b.ID()); ok {
		t.Fatalf("b must be gone")
	}
	if _, ok := s.Get(a.ID()); !ok {
		t.Fatalf("a was touched and must survive")
	}
	now = now.Add(2 * time.Hour)
	if _, ok := s.Get(a.ID()); ok {
		t.Fatalf("idle a must expire on access")
	}
	if s.Len() != 0 {
		t.Fatalf("len: %d", s.Len())
	}
}

func TestState_ViewsAndClear(t *testing.T) {
	st := newTestState("s1")
	calls := 0
	mk := func() *service.ListView[int] {
		calls++
		return service.NewListView[int](nil, 10, 0)
	}
	v1 := View(st, "orders", mk)
	v2 := View(st, "orders", mk)
	if v1 != v2 || calls != 1 {
		t.Fatalf("view must be created once")
	}

	st.PutBuilder(service.NewOrderBuilder("b1", service.BuilderDeps{}))
	if st.BuilderCount() != 1 {
		t.Fatalf("builder not stored")
	}
	if !st.CloseBuilder("b1") || st.CloseBuilder("b1") {
		t.Fatalf("close builder")
	}

	b := service.NewOrderBuilder("b2", service.BuilderDeps{})
	st.PutBuilder(b)
	st.Clear()
	if st.BuilderCount() != 0 || b.State() != service.StateClosed {
		t.Fatalf("clear must close builders")
	}
	if View(st, "orders", mk) == v1 || calls != 2 {
		t.Fatalf("clear must drop views")
	}
}
