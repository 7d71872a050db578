package retry

import "sync"

// CheckpointStore keeps the last raw output seen for an in-flight operation,
// keyed by a caller-supplied identifier. Callers save each attempt's output
// before validating it, so the last (possibly invalid) output can be
// recovered for diagnostics after a final failure. Slots are cleared on
// success.
type CheckpointStore struct {
	mu    sync.Mutex
	slots map[string]string
}

// NewCheckpointStore creates an empty checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{slots: make(map[string]string)}
}

// Save stores raw output under key, replacing any previous checkpoint.
func (s *CheckpointStore) Save(key, raw string) {
	s.mu.Lock()
	s.slots[key] = raw
	s.mu.Unlock()
}

// Recover returns the last saved output for key, if any.
func (s *CheckpointStore) Recover(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.slots[key]
	return raw, ok
}

// Clear removes the checkpoint for key.
func (s *CheckpointStore) Clear(key string) {
	s.mu.Lock()
	delete(s.slots, key)
	s.mu.Unlock()
}

// Len returns the number of live checkpoint slots.
func (s *CheckpointStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
