// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// TailProducer is the lock-free shared-tail SPMC buffer's write side (spec
// §4.3). Every consumer reads every record the producer writes — this is
// a broadcast ring, not a work-sharing queue — so Produce never blocks.
// Like Giacomoni, this variant is single-pass: once Cap() records have
// been produced the segment is exhausted and Produce returns ErrFull.
//
// Adapted from the teacher's SPSC cached-index mechanism (spsc.go): the
// shared tail index plays the role of SPSC's tail, but there is no shared
// head, since each consumer tracks its own read position independently.
type TailProducer[T any] struct {
	seg      *segment
	l        layout
	tail     *atomix.Uint64
	finished *atomix.Bool
	tailLoc  uint64 // process-local mirror; single writer, never re-read from shared memory
}

// TailConsumer is the shared-tail variant's read side. Each consumer owns
// a private head index and a private cached view of the producer's tail,
// neither of which is shared memory: two consumers never interfere with
// each other's read position.
type TailConsumer[T any] struct {
	seg        *segment
	l          layout
	tail       *atomix.Uint64
	finished   *atomix.Bool
	head       uint64
	cachedTail uint64
}

func atomixUint64At(data []byte, offset int64) *atomix.Uint64 {
	return (*atomix.Uint64)(unsafe.Pointer(&data[offset]))
}

func atomixBoolAt(data []byte, offset int64) *atomix.Bool {
	return (*atomix.Bool)(unsafe.Pointer(&data[offset]))
}

func tailSlot[T any](data []byte, l layout, idx uint64) *T {
	return (*T)(unsafe.Pointer(&data[l.slotsOffset+int64(idx)*l.recordSize]))
}

func openTailProducer[T any](addr Addr, capacity int, hugePages bool) (*TailProducer[T], error) {
	l := tailLayout[T](capacity)
	seg, err := openSegmentProducer(addr, l, hugePages)
	if err != nil {
		return nil, err
	}
	data := seg.Bytes()
	tail := atomixUint64At(data, tailTailOffset)
	finished := atomixBoolAt(data, tailFinishedOffset)
	tail.StoreRelaxed(0)
	finished.Store(false)

	return &TailProducer[T]{seg: seg, l: l, tail: tail, finished: finished}, nil
}

func openTailConsumer[T any](addr Addr) (*TailConsumer[T], error) {
	seg, l, err := openSegmentConsumer(addr, tailLayout[T], false)
	if err != nil {
		return nil, err
	}
	data := seg.Bytes()
	return &TailConsumer[T]{
		seg:      seg,
		l:        l,
		tail:     atomixUint64At(data, tailTailOffset),
		finished: atomixBoolAt(data, tailFinishedOffset),
	}, nil
}

// Produce writes item into the slot at the current tail and publishes it
// with a release store. The single-writer invariant means the local
// mirror of tail never needs to be re-read from shared memory. Returns
// ErrFull once all capacity slots in this single-pass segment have been
// produced, without writing.
func (p *TailProducer[T]) Produce(item *T) error {
	if p.tailLoc >= uint64(p.l.capacity) {
		return ErrFull
	}
	*tailSlot[T](p.seg.Bytes(), p.l, p.tailLoc) = *item
	p.tailLoc++
	p.tail.StoreRelease(p.tailLoc)
	return nil
}

// Cap returns the buffer's usable capacity in records.
func (p *TailProducer[T]) Cap() int { return int(p.l.capacity) }

// Close publishes writer_finished with a release store before unlinking
// the segment, so any consumer that observes the unlink has already been
// able to observe the finished flag (spec §9: writer_finished is
// published before the name/key is removed, the reverse of the original
// C++ implementation's ordering).
func (p *TailProducer[T]) Close() error {
	p.finished.Store(true)
	return p.seg.Close(true)
}

// Consume returns the next record in the stream. If the producer hasn't
// published one yet it returns ErrWouldBlock (spec §4.3's Again case);
// once the producer has both published its last record and set
// writer_finished, and the consumer has drained everything up to that
// tail, it returns ErrFinished. Since the segment is single-pass, there
// is no lapping to account for: the producer never writes past Cap()
// slots, so every index the consumer reaches is still present.
func (c *TailConsumer[T]) Consume() (T, error) {
	var zero T
	if c.head >= c.cachedTail {
		// Observe writer_finished before refreshing the tail, so a record
		// published just before Close is still seen by the tail load.
		finished := c.finished.Load()
		c.cachedTail = c.tail.LoadAcquire()
		if c.head >= c.cachedTail {
			if finished {
				return zero, ErrFinished
			}
			return zero, ErrAgain
		}
	}

	item := *tailSlot[T](c.seg.Bytes(), c.l, c.head)
	c.head++
	return item, nil
}

// Cap returns the buffer's usable capacity in records.
func (c *TailConsumer[T]) Cap() int { return int(c.l.capacity) }

// Close unmaps the consumer's view without affecting the segment.
func (c *TailConsumer[T]) Close() error {
	return c.seg.Close(false)
}
