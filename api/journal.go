package api

import (
	"sync"

	"github.com/huandu/skiplist"

	"github.com/openalpha/dsc-chain/api/types"
)

const defaultJournalCapacity = 10000

// sequenceKey orders journal entries by ascending sequence
type sequenceKey struct{}

func (sequenceKey) Compare(lhs, rhs interface{}) int {
	l := lhs.(uint64)
	r := rhs.(uint64)
	switch {
	case l < r:
		return -1
	case l > r:
		return 1
	}
	return 0
}

func (sequenceKey) CalcScore(key interface{}) float64 {
	return float64(key.(uint64))
}

// Journal keeps the most recent engine events in sequence order. Sequences
// start at 1 and are contiguous, so the oldest retained entry is always the
// list front.
type Journal struct {
	mu       sync.RWMutex
	list     *skiplist.SkipList
	capacity int
	next     uint64
}

// NewJournal creates a journal retaining at most capacity events
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = defaultJournalCapacity
	}
	return &Journal{
		list:     skiplist.New(sequenceKey{}),
		capacity: capacity,
		next:     1,
	}
}

// Append assigns the next sequence to ev and stores it, evicting the oldest
// entry when full
func (j *Journal) Append(ev *types.Event) *types.Event {
	j.mu.Lock()
	defer j.mu.Unlock()

	ev.Sequence = j.next
	j.next++
	j.list.Set(ev.Sequence, ev)

	for j.list.Len() > j.capacity {
		front := j.list.Front()
		j.list.Remove(front.Key())
	}
	return ev
}

// Since returns up to limit events with a sequence greater than seq
func (j *Journal) Since(seq uint64, limit int) []*types.Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	front := j.list.Front()
	if front == nil || seq >= j.next-1 {
		return []*types.Event{}
	}

	start := seq + 1
	if first := front.Key().(uint64); start < first {
		start = first
	}

	events := make([]*types.Event, 0)
	for elem := j.list.Get(start); elem != nil; elem = elem.Next() {
		if limit > 0 && len(events) >= limit {
			break
		}
		events = append(events, elem.Value.(*types.Event))
	}
	return events
}

// Len returns the number of retained events
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.list.Len()
}

// LastSequence returns the sequence of the newest event, or 0
func (j *Journal) LastSequence() uint64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.next - 1
}
