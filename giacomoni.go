// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// FlagProducer is the per-slot-flag SPMC buffer's write side (spec §4.4,
// §6). Unlike TailProducer, there is no shared tail index: each slot
// carries its own produced flag, and the producer simply walks the slot
// array forward exactly once per segment. Resolving the spec's open
// question on wraparound, this variant is single-pass — once all
// capacity slots have been produced, the segment is done and a fresh one
// is required for the next batch.
//
// Adapted from the teacher's FAA-based SPMC (spmc.go): that type tags
// each slot with a round-number cycle so it can be reused forever; here
// the cycle collapses to a single boolean, matching the bit-exact layout
// spec §6 requires.
type FlagProducer[T any] struct {
	seg      *segment
	l        layout
	flags    []byte
	finished *atomix.Bool
	tailLoc  uint64
}

// FlagConsumer is the per-slot-flag variant's read side. Every consumer
// reads every record independently, the same broadcast discipline as
// TailConsumer, but backed by per-slot readiness flags instead of a
// shared tail counter.
type FlagConsumer[T any] struct {
	seg      *segment
	l        layout
	flags    []byte
	finished *atomix.Bool
	head     uint64
}

// flagAt overlays the idx'th produced flag. Flags are packed at
// flagStride bytes apart (see layout.go), not one literal byte, so the
// index must be scaled rather than treated as a byte offset directly.
func flagAt(flags []byte, idx uint64) *atomix.Bool {
	return (*atomix.Bool)(unsafe.Pointer(&flags[idx*uint64(flagStride)]))
}

func openFlagProducer[T any](addr Addr, capacity int, hugePages bool) (*FlagProducer[T], error) {
	l := giacomoniLayout[T](capacity)
	seg, err := openSegmentProducer(addr, l, hugePages)
	if err != nil {
		return nil, err
	}
	data := seg.Bytes()
	flags := data[giacomoniFlagsOffset : giacomoniFlagsOffset+l.capacity*flagStride]
	for i := int64(0); i < l.capacity; i++ {
		flagAt(flags, uint64(i)).Store(false)
	}
	finished := atomixBoolAt(data, giacomoniFinishedOffset)
	finished.Store(false)

	return &FlagProducer[T]{seg: seg, l: l, flags: flags, finished: finished}, nil
}

func openFlagConsumer[T any](addr Addr) (*FlagConsumer[T], error) {
	seg, l, err := openSegmentConsumer(addr, giacomoniLayout[T], false)
	if err != nil {
		return nil, err
	}
	data := seg.Bytes()
	flags := data[giacomoniFlagsOffset : giacomoniFlagsOffset+l.capacity*flagStride]
	return &FlagConsumer[T]{
		seg:      seg,
		l:        l,
		flags:    flags,
		finished: atomixBoolAt(data, giacomoniFinishedOffset),
	}, nil
}

// Produce writes item into the next unused slot and marks it ready with a
// release store. Returns ErrFull once all capacity slots in this
// single-pass segment have been produced.
func (p *FlagProducer[T]) Produce(item *T) error {
	if p.tailLoc >= uint64(p.l.capacity) {
		return ErrFull
	}
	idx := p.tailLoc
	*tailSlot[T](p.seg.Bytes(), p.l, idx) = *item
	flagAt(p.flags, idx).Store(true)
	p.tailLoc++
	return nil
}

// Cap returns the buffer's capacity in records.
func (p *FlagProducer[T]) Cap() int { return int(p.l.capacity) }

// Close publishes writer_finished before unlinking, so any consumer
// parked waiting on a slot that will now never be produced observes
// ErrFinished instead of retrying forever.
func (p *FlagProducer[T]) Close() error {
	p.finished.Store(true)
	return p.seg.Close(true)
}

// Consume returns the next record in this consumer's single pass over the
// segment. It returns ErrAgain if the slot at the consumer's head hasn't
// been produced yet (or the consumer has reached the end of the segment
// while the producer is still open), or ErrFinished once the producer has
// closed and the consumer has reached either the end of the segment or a
// slot the producer never filled.
func (c *FlagConsumer[T]) Consume() (T, error) {
	var zero T
	// writer_finished is observed before the slot flag, so a slot produced
	// just before Close is still seen as ready.
	finished := c.finished.Load()
	if c.head >= uint64(c.l.capacity) || !flagAt(c.flags, c.head).Load() {
		if finished {
			return zero, ErrFinished
		}
		return zero, ErrAgain
	}
	item := *tailSlot[T](c.seg.Bytes(), c.l, c.head)
	c.head++
	return item, nil
}

// Cap returns the buffer's capacity in records.
func (c *FlagConsumer[T]) Cap() int { return int(c.l.capacity) }

// Close unmaps the consumer's view without affecting the segment.
func (c *FlagConsumer[T]) Close() error {
	return c.seg.Close(false)
}
