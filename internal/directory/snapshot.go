package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/jask/donormatch/internal/model"
	"github.com/jask/donormatch/internal/normalize"
)

// Snapshot is a read-through cache over a directory, owned by one batch.
// Concurrent readers are safe. Batches never share a snapshot.
type Snapshot struct {
	base Directory

	mu        sync.RWMutex
	customers []model.Customer
	byID      map[string]int
	loaded    bool
}

// NewSnapshot wraps base without loading anything.
func NewSnapshot(base Directory) *Snapshot {
	return &Snapshot{base: base, byID: map[string]int{}}
}

// Preload fetches the whole roster when base is a Lister. Otherwise searches
// keep going to base.
func Preload(ctx context.Context, base Directory) (*Snapshot, error) {
	s := NewSnapshot(base)
	lister, ok := base.(Lister)
	if !ok {
		return s, nil
	}
	all, err := lister.List(ctx)
	if err != nil {
		return nil, &model.DirectoryError{Op: "list", Err: eris.Wrap(err, "preload")}
	}
	s.mu.Lock()
	for _, c := range all {
		s.put(c)
	}
	s.loaded = true
	s.mu.Unlock()
	return s, nil
}

// Loaded reports whether the roster was preloaded.
func (s *Snapshot) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Len is the number of cached customers.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.customers)
}

func (s *Snapshot) Search(ctx context.Context, term string) ([]model.Customer, error) {
	if !s.Loaded() {
		found, err := s.base.Search(ctx, term)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		for _, c := range found {
			s.put(c)
		}
		s.mu.Unlock()
		return found, nil
	}

	key := normalize.NameKey(term)
	if key == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Customer
	for _, c := range s.customers {
		if customerContains(c, key) {
			out = append(out, c)
		}
	}
	return out, nil
}

func customerContains(c model.Customer, key string) bool {
	for _, name := range []string{c.DisplayName, c.CompanyName, c.GivenName, c.FamilyName, c.GivenName + " " + c.FamilyName} {
		if strings.Contains(normalize.NameKey(name), key) {
			return true
		}
	}
	return false
}

// Get serves cached customers and falls through to base on a miss.
func (s *Snapshot) Get(ctx context.Context, id string) (model.Customer, error) {
	s.mu.RLock()
	i, ok := s.byID[id]
	var c model.Customer
	if ok {
		c = s.customers[i]
	}
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	c, err := s.base.Get(ctx, id)
	if err != nil {
		return model.Customer{}, err
	}
	s.mu.Lock()
	s.put(c)
	s.mu.Unlock()
	return c, nil
}

// Create passes through to base and caches the result.
func (s *Snapshot) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	created, err := s.base.Create(ctx, c)
	if err != nil {
		return model.Customer{}, err
	}
	s.mu.Lock()
	s.put(created)
	s.mu.Unlock()
	return created, nil
}

// Update passes through when base is an Updater and refreshes the cache.
func (s *Snapshot) Update(ctx context.Context, c model.Customer, patch model.ContactPatch) (model.Customer, error) {
	up, ok := s.base.(Updater)
	if !ok {
		return model.Customer{}, &model.DirectoryError{Op: "update", Term: c.ID, Err: eris.New("directory does not support updates")}
	}
	updated, err := up.Update(ctx, c, patch)
	if err != nil {
		return model.Customer{}, err
	}
	s.mu.Lock()
	s.put(updated)
	s.mu.Unlock()
	return updated, nil
}

// put must be called with mu held for writing.
func (s *Snapshot) put(c model.Customer) {
	if i, ok := s.byID[c.ID]; ok {
		s.customers[i] = c
		return
	}
	s.byID[c.ID] = len(s.customers)
	s.customers = append(s.customers, c)
}
