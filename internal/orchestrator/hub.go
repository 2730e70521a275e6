package orchestrator

import "github.com/acstiles/media-preloader/internal/preload"

// Update notifies subscribers of a domain state change. The state is a
// value copy; subscribers can read it freely.
type Update struct {
	Domain preload.Domain
	State  preload.CollectionState
}

// Subscribe registers a state-change listener. The returned cancel
// func must be called to release the subscription. Delivery is
// best-effort and never blocks the orchestrator: when the subscriber's
// buffer is full the update is dropped, and the next update carries
// the full current state anyway.
func (s *Service) Subscribe(buffer int) (<-chan Update, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Update, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Service) publish(domain preload.Domain, state preload.CollectionState) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- Update{Domain: domain, State: state}:
		default:
		}
	}
}
