// Package memory is an in-process response store. Contents are lost on
// restart. With a size limit the least recently used response is evicted
// first.
package memory

import (
	"cmp"
	"container/list"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rhuss/respkit/pkg/api"
	"github.com/rhuss/respkit/pkg/storage"
	"github.com/rhuss/respkit/pkg/transport"
)

type entry struct {
	resp      api.Response
	input     api.Items
	tenantID  string
	seq       uint64
	deletedAt *time.Time
	lruElem   *list.Element
}

// Store is an in-memory ResponseStore with optional LRU eviction.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front is most recently used
	maxSize int
	seq     uint64
}

var _ transport.ResponseStore = (*Store)(nil)

// New creates a store holding at most maxSize responses; 0 means unlimited.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

func (s *Store) SaveResponse(ctx context.Context, resp *api.Response, input api.Items) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[resp.ID]; exists {
		return storage.ErrConflict
	}
	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}
	s.seq++
	s.entries[resp.ID] = &entry{
		seq:      s.seq,
		resp:     *resp,
		input:    slices.Clone(input),
		tenantID: storage.GetTenant(ctx),
		lruElem:  s.lru.PushFront(resp.ID),
	}
	return nil
}

func (s *Store) UpdateResponse(ctx context.Context, resp *api.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(ctx, resp.ID, false)
	if err != nil {
		return err
	}
	e.resp = *resp
	s.lru.MoveToFront(e.lruElem)
	return nil
}

func (s *Store) GetResponse(ctx context.Context, id string) (*api.Response, error) {
	return s.get(ctx, id, false)
}

func (s *Store) GetResponseForChain(ctx context.Context, id string) (*api.Response, error) {
	return s.get(ctx, id, true)
}

func (s *Store) get(ctx context.Context, id string, includeDeleted bool) (*api.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	s.lru.MoveToFront(e.lruElem)
	resp := e.resp
	return &resp, nil
}

// DeleteResponse soft-deletes; GetResponseForChain still sees the response.
func (s *Store) DeleteResponse(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(ctx, id, false)
	if err != nil {
		return err
	}
	now := time.Now()
	e.deletedAt = &now
	return nil
}

func (s *Store) ListResponses(ctx context.Context, opts transport.ListOptions) (*api.ResponseList, error) {
	s.mu.Lock()
	var matches []*entry
	for _, e := range s.entries {
		if e.deletedAt != nil || !storage.Visible(ctx, e.tenantID) {
			continue
		}
		if opts.Model != "" && e.resp.Model != opts.Model {
			continue
		}
		matches = append(matches, e)
	}

	asc := opts.Order == api.OrderAsc
	slices.SortFunc(matches, func(a, b *entry) int {
		c := cmp.Or(cmp.Compare(a.resp.CreatedAt, b.resp.CreatedAt), cmp.Compare(a.seq, b.seq))
		if !asc {
			c = -c
		}
		return c
	})
	sorted := make([]*api.Response, len(matches))
	for i, e := range matches {
		resp := e.resp
		sorted[i] = &resp
	}
	s.mu.Unlock()

	page, more := storage.Page(sorted, func(r *api.Response) string { return r.ID }, opts.After, opts.Before, opts.Limit)
	return api.NewResponseList(page, more), nil
}

// GetInputItems pages through the input items in the order they were sent,
// or reversed for desc.
func (s *Store) GetInputItems(ctx context.Context, responseID string, opts transport.ListOptions) (*api.ItemList, error) {
	s.mu.Lock()
	e, err := s.lookup(ctx, responseID, false)
	var items api.Items
	if err == nil {
		items = slices.Clone(e.input)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if opts.Order == api.OrderDesc {
		slices.Reverse(items)
	}
	page, more := storage.Page(items, func(it api.Item) string { return it.Base().ID }, opts.After, opts.Before, opts.Limit)
	return api.NewItemList(page, more), nil
}

func (s *Store) HealthCheck(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len returns the number of stored responses, deleted ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// lookup must be called with s.mu held.
func (s *Store) lookup(ctx context.Context, id string, includeDeleted bool) (*entry, error) {
	e, ok := s.entries[id]
	if !ok || (e.deletedAt != nil && !includeDeleted) || !storage.Visible(ctx, e.tenantID) {
		return nil, storage.ErrNotFound
	}
	return e, nil
}

// evictOldest must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lru.Back()
	if back == nil {
		return
	}
	s.lru.Remove(back)
	delete(s.entries, back.Value.(string))
}
