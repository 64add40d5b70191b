package board

import (
	"sync"

	"github.com/Eduardo-Nightborn/TaskMaster/domain"
)

// broker fans board snapshots out to subscribers. Slow subscribers only ever
// see the latest snapshot.
type broker struct {
	mu   sync.Mutex
	subs map[chan domain.Board]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[chan domain.Board]struct{})}
}

func (b *broker) subscribe() chan domain.Board {
	ch := make(chan domain.Board, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broker) unsubscribe(ch chan domain.Board) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *broker) publish(snapshot domain.Board) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- snapshot:
			continue
		default:
		}
		// drop the stale snapshot and retry once
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
