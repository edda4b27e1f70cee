package workflow

import "github.com/use-agent/tweetscope/models"

const subscriberBuffer = 16

// Subscribe returns a channel that receives a row-less snapshot on every
// state change, and a function that unsubscribes and closes the channel.
// Slow subscribers miss intermediate snapshots; they are never blocked on.
func (o *Orchestrator) Subscribe() (<-chan models.RunSnapshot, func()) {
	ch := make(chan models.RunSnapshot, subscriberBuffer)

	o.subMu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = ch
	o.subMu.Unlock()

	return ch, func() {
		o.subMu.Lock()
		defer o.subMu.Unlock()
		if c, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(c)
		}
	}
}

// publishLocked fans the current state out to subscribers. o.mu must be held.
func (o *Orchestrator) publishLocked() {
	snap := o.summaryLocked()

	o.subMu.Lock()
	defer o.subMu.Unlock()
	for _, ch := range o.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
