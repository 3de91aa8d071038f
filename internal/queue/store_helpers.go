package queue

import "errors"

// errSkip aborts a single-item mutation without publishing a new snapshot.
var errSkip = errors.New("skip")

// mutate runs fn over a private copy of the items and publishes the result as
// the next snapshot. fn may reorder, append to or truncate the slice freely.
func (s *Store) mutate(fn func(items []Item) []Item) {
	s.mu.Lock()
	prev := s.current.Load()
	working := make([]Item, len(prev.items), len(prev.items)+1)
	copy(working, prev.items)
	next := newQueue(fn(working), prev.version+1)
	s.current.Store(next)
	s.broadcast(*next)
	s.mu.Unlock()
}

// mutateItem applies fn to a copy of the item with the given id. When fn
// returns an error nothing is published; errSkip is swallowed.
func (s *Store) mutateItem(id string, fn func(item *Item) error) error {
	s.mu.Lock()
	prev := s.current.Load()
	idx, ok := prev.index[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	item := prev.items[idx]
	if err := fn(&item); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errSkip) {
			return nil
		}
		return err
	}
	item.UpdatedAt = s.now()

	working := make([]Item, len(prev.items))
	copy(working, prev.items)
	working[idx] = item
	next := &Queue{items: working, index: prev.index, version: prev.version + 1}
	s.current.Store(next)
	s.broadcast(*next)
	s.mu.Unlock()
	return nil
}

// broadcast runs under s.mu so subscribers observe snapshots in version order.
func (s *Store) broadcast(snapshot Queue) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snapshot:
			continue
		default:
		}
		// Replace the stale pending snapshot with the newest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
