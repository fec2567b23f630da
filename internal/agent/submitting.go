package agent

import "sync"

// SubmittingSet tracks flow run ids currently in flight between discovery
// and dispatch completion. An id enters the set before its deploy work is
// handed to the executor and leaves it only from the completion callback, so
// a concurrent poll cycle can never re-dispatch the same run. All access is
// serialized by a single mutex; the contents are only ever exposed as a
// snapshot copy.
type SubmittingSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSubmittingSet creates an empty set.
func NewSubmittingSet() *SubmittingSet {
	return &SubmittingSet{ids: make(map[string]struct{})}
}

// Add inserts id and reports whether it was newly added.
func (s *SubmittingSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove deletes id from the set. Removing an absent id is a no-op.
func (s *SubmittingSet) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// Contains reports whether id is currently submitting.
func (s *SubmittingSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids in flight.
func (s *SubmittingSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Snapshot returns a copy of the current contents.
func (s *SubmittingSet) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}
