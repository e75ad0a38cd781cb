// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stats computes the running per-symbol statistics a shmq
// consumer accumulates while draining a kline stream.
package stats

import (
	"container/heap"
	"sync"

	"github.com/marketfeed/shmq/internal/kline"
)

// medianTracker is a running median over a stream of int32s using two
// heaps, grounded directly on lock_free_test/consumer.cc's CumMedian
// (there built on two std::priority_queue instances). No third-party
// priority-queue library appears anywhere in the example pack, so this
// stays on container/heap rather than inventing a dependency for it.
type medianTracker struct {
	low  maxHeap // values <= median
	high minHeap // values > median
}

func (m *medianTracker) insert(x int32) {
	if m.low.Len() == 0 || x <= m.low[0] {
		heap.Push(&m.low, x)
	} else {
		heap.Push(&m.high, x)
	}

	if m.low.Len() > m.high.Len()+1 {
		heap.Push(&m.high, heap.Pop(&m.low))
	} else if m.high.Len() > m.low.Len() {
		heap.Push(&m.low, heap.Pop(&m.high))
	}
}

func (m *medianTracker) median() int32 {
	if m.low.Len() == m.high.Len() {
		return (m.low[0] + m.high[0]) / 2
	}
	return m.low[0]
}

type maxHeap []int32

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[i] > h[j] }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(int32)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

type minHeap []int32

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x interface{}) { *h = append(*h, x.(int32)) }
func (h *minHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// symbolStats is the per-symbol accumulator, grounded on
// lock_free_test/consumer.cc's StatData: running volume, trade count, a
// momentum factor derived from comparing the typical price against the
// running median close, and the median tracker itself.
type symbolStats struct {
	Volume     uint64
	NumTrades  uint64
	Factor     int64
	medianTrkr medianTracker
}

// FactorTracker accumulates [symbolStats] per symbol ID as records are
// drained off a shmq consumer, mirroring consumer.cc's StatMap +
// update_factor. Safe for concurrent use by multiple consumer goroutines,
// which the original single-threaded consumer.cc never needed.
type FactorTracker struct {
	mu   sync.Mutex
	byID map[uint32]*symbolStats
}

// NewFactorTracker returns an empty tracker.
func NewFactorTracker() *FactorTracker {
	return &FactorTracker{byID: make(map[uint32]*symbolStats)}
}

// Update folds one record into the tracker, exactly replicating
// update_factor's arithmetic: typical price is (high+low+close)/3, the
// factor nudges +1 when the typical price sits below the running median
// close and -1 otherwise.
func (t *FactorTracker) Update(rec kline.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.byID[rec.SymID]
	if !ok {
		s = &symbolStats{}
		t.byID[rec.SymID] = s
	}

	s.Volume += uint64(rec.Volume)
	s.NumTrades += uint64(rec.NumTrades)

	typical := (int64(rec.High) + int64(rec.Low) + int64(rec.Close)) / 3
	s.medianTrkr.insert(rec.Close)
	median := int64(s.medianTrkr.median())
	if typical < median {
		s.Factor++
	} else {
		s.Factor--
	}
}

// Snapshot is one symbol's accumulated statistics at the moment Snapshot
// is called.
type Snapshot struct {
	SymID     uint32
	Volume    uint64
	NumTrades uint64
	Factor    int64
}

// Snapshot returns the current per-symbol statistics, unordered.
func (t *FactorTracker) Snapshot() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Snapshot, 0, len(t.byID))
	for id, s := range t.byID {
		out = append(out, Snapshot{
			SymID:     id,
			Volume:    s.Volume,
			NumTrades: s.NumTrades,
			Factor:    s.Factor,
		})
	}
	return out
}
