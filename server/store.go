package server

import (
	"sync"

	"github.com/google/uuid"

	"diploma_generator/generator"
)

// maxStoredRuns bounds the in-memory history; the oldest run is evicted first.
const maxStoredRuns = 256

type runRecord struct {
	Run      *generator.Run `json:"run"`
	Location string         `json:"location,omitempty"`
}

// runStore keeps finished runs so clients can look them up after the
// generate call returns. Runs are only stored once the pipeline is done
// with them.
type runStore struct {
	mu    sync.Mutex
	runs  map[uuid.UUID]runRecord
	order []uuid.UUID
}

func newStore() *runStore {
	return &runStore{runs: make(map[uuid.UUID]runRecord)}
}

func (s *runStore) set(rec runRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := rec.Run.ID
	if _, ok := s.runs[id]; !ok {
		s.order = append(s.order, id)
	}
	s.runs[id] = rec

	for len(s.order) > maxStoredRuns {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *runStore) get(id uuid.UUID) (runRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.runs[id]
	return rec, ok
}
