package checkout

import "sync"

// inflightSet tracks operation ids that are currently executing, so
// repeated clicks cannot fire duplicate submissions. Ids are scoped by
// the caller ("place:<customer>", "coupon:<customer>").
type inflightSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInflightSet() *inflightSet {
	return &inflightSet{ids: make(map[string]struct{})}
}

// begin reserves id, returning false when it is already in flight.
func (s *inflightSet) begin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// end releases id.
func (s *inflightSet) end(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ids, id)
}

// has reports whether id is currently in flight.
func (s *inflightSet) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}
