package battle

import (
	"sync"

	"go-battle/entities"
)

type EventKind string

const (
	EventTick     EventKind = "tick"
	EventPurchase EventKind = "purchase"
	EventDraw     EventKind = "draw"
	EventResume   EventKind = "resume"
	EventReset    EventKind = "reset"
)

// Event is delivered to subscribers after every state change or purchase attempt.
type Event struct {
	Kind    EventKind
	Side    entities.Side
	Success bool
	CardID  string
}

type observers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Event)
}

// Subscribe registers fn and returns a function that removes it. fn runs on the goroutine
// that made the change, after State reflects it, and must not call Stop, ClearGameState
// or any operation that mutates the battle.
func (s *Service) Subscribe(fn func(Event)) func() {
	s.obs.mu.Lock()
	defer s.obs.mu.Unlock()
	if s.obs.fns == nil {
		s.obs.fns = make(map[int]func(Event))
	}
	id := s.obs.next
	s.obs.next++
	s.obs.fns[id] = fn
	return func() {
		s.obs.mu.Lock()
		delete(s.obs.fns, id)
		s.obs.mu.Unlock()
	}
}

func (s *Service) notify(e Event) {
	s.obs.mu.Lock()
	fns := make([]func(Event), 0, len(s.obs.fns))
	for _, fn := range s.obs.fns {
		fns = append(fns, fn)
	}
	s.obs.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// queue holds e until the running operation finishes. Callers hold opMu.
func (s *Service) queue(e Event) {
	s.pending = append(s.pending, e)
}
