package service

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync"
	"time"

	"pharmafront/internal/repository"
)

const DefaultPageSize = 10

// ErrStale is returned when a newer fetch was issued while this one was in flight;
// its result is dropped.
var ErrStale = errors.New("stale response discarded")

type FetchFunc[T any] func(ctx context.Context, p repository.ListParams) ([]T, error)

// Page is one rendered page of a list view
type Page[T any] struct {
	Items    []T               `json:"items"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	HasNext  bool              `json:"has_next"`
	HasPrev  bool              `json:"has_prev"`
	Search   string            `json:"search,omitempty"`
	Filters  map[string]string `json:"filters,omitempty"`
}

// ListView pages through a resource with the fetch N+1, keep N strategy.
// Search and filter changes reset the page to 0; searches are debounced and
// every fetch carries a sequence number so late responses cannot overwrite
// newer ones.
type ListView[T any] struct {
	fetch    FetchFunc[T]
	pageSize int
	debounce *Debouncer

	mu      sync.Mutex
	page    int
	search  string
	filters map[string]string
	seq     uint64
	current Page[T]
	loaded  bool
}

func NewListView[T any](fetch FetchFunc[T], pageSize int, debounce time.Duration) *ListView[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ListView[T]{
		fetch:    fetch,
		pageSize: pageSize,
		debounce: NewDebouncer(debounce),
		filters:  make(map[string]string),
		current:  Page[T]{Items: []T{}, PageSize: pageSize},
	}
}

// Load fetches the current page.
func (v *ListView[T]) Load(ctx context.Context) (Page[T], error) {
	return v.run(ctx, func(*listQuery) bool { return true })
}

func (v *ListView[T]) Reload(ctx context.Context) (Page[T], error) {
	return v.Load(ctx)
}

// Next moves forward one page; without a next page it returns the current one.
func (v *ListView[T]) Next(ctx context.Context) (Page[T], error) {
	return v.run(ctx, func(q *listQuery) bool {
		if v.loaded && !v.current.HasNext {
			return false
		}
		q.page++
		return true
	})
}

func (v *ListView[T]) Prev(ctx context.Context) (Page[T], error) {
	return v.run(ctx, func(q *listQuery) bool {
		if q.page == 0 {
			return false
		}
		q.page--
		return true
	})
}

// Search waits out the debounce window; only the last term of a burst is fetched.
func (v *ListView[T]) Search(ctx context.Context, term string) (Page[T], error) {
	if err := v.debounce.Settle(ctx); err != nil {
		return v.Current(), err
	}
	term = strings.TrimSpace(term)
	return v.run(ctx, func(q *listQuery) bool {
		q.search = term
		q.page = 0
		return true
	})
}

// SetFilter sets or, with an empty value, clears one filter.
func (v *ListView[T]) SetFilter(ctx context.Context, key, value string) (Page[T], error) {
	return v.run(ctx, func(q *listQuery) bool {
		if value == "" {
			delete(q.filters, key)
		} else {
			q.filters[key] = value
		}
		q.page = 0
		return true
	})
}

func (v *ListView[T]) Current() Page[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Params returns the request the next Load would send.
func (v *ListView[T]) Params() repository.ListParams {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query().params(v.pageSize)
}

// listQuery is a candidate page/search/filter state. It only becomes the
// view's state once its fetch succeeds.
type listQuery struct {
	page    int
	search  string
	filters map[string]string
}

func (v *ListView[T]) query() listQuery {
	return listQuery{page: v.page, search: v.search, filters: maps.Clone(v.filters)}
}

func (q listQuery) params(pageSize int) repository.ListParams {
	return repository.ListParams{
		Skip:    q.page * pageSize,
		Limit:   pageSize + 1,
		Search:  q.search,
		Filters: maps.Clone(q.filters),
	}
}

// run applies mutate to a copy of the query under the lock and, if it asks
// for it, fetches that page. Failed and stale fetches leave the view untouched.
func (v *ListView[T]) run(ctx context.Context, mutate func(q *listQuery) bool) (Page[T], error) {
	v.mu.Lock()
	q := v.query()
	if !mutate(&q) {
		cur := v.current
		v.mu.Unlock()
		return cur, nil
	}
	v.seq++
	seq := v.seq
	p := q.params(v.pageSize)
	v.mu.Unlock()

	rows, err := v.fetch(ctx, p)

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.seq {
		return v.current, ErrStale
	}
	if err != nil {
		return v.current, err
	}
	hasNext := len(rows) > v.pageSize
	if hasNext {
		rows = rows[:v.pageSize]
	}
	if rows == nil {
		rows = []T{}
	}
	v.page, v.search, v.filters = q.page, q.search, q.filters
	v.current = Page[T]{
		Items:    rows,
		Page:     q.page,
		PageSize: v.pageSize,
		HasNext:  hasNext,
		HasPrev:  q.page > 0,
		Search:   q.search,
		Filters:  p.Filters,
	}
	v.loaded = true
	return v.current, nil
}
