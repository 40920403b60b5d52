package feed

import (
	"sync"

	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/models"
)

// sequencer hands out arrival numbers and commits finished records strictly
// in that order. A slot released without a record is skipped.
type sequencer struct {
	mu      sync.Mutex
	next    uint64
	commit  uint64
	pending map[uint64]*models.MazeRecord
	apply   func(models.MazeRecord)
	stopped bool
}

func newSequencer(apply func(models.MazeRecord)) *sequencer {
	return &sequencer{
		next:    1,
		commit:  1,
		pending: make(map[uint64]*models.MazeRecord),
		apply:   apply,
	}
}

func (s *sequencer) reserve() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.next
	s.next++
	return seq
}

func (s *sequencer) complete(seq uint64, record models.MazeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending[seq] = &record
	s.flush()
}

func (s *sequencer) release(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.pending[seq] = nil
	s.flush()
}

// stop discards everything not yet committed. Once it returns apply is
// never called again.
func (s *sequencer) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.pending = make(map[uint64]*models.MazeRecord)
}

// waiting reports how many finished slots are held back by an earlier one.
func (s *sequencer) waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *sequencer) flush() {
	for !s.stopped {
		record, ok := s.pending[s.commit]
		if !ok {
			return
		}
		delete(s.pending, s.commit)
		s.commit++
		if record != nil {
			s.apply(*record)
		}
	}
}
