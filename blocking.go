// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq

import "unsafe"

// BlockingProducer is the classical, semaphore-synchronised SPMC buffer's
// write side (spec §4.2), grounded directly on
// original_source/src/shm_bbuffer_spmc.h's ShmCircularBuffer<T, true>.
// Produce blocks until a slot is free.
type BlockingProducer[T any] struct {
	seg   *segment
	l     layout
	mutex futexSemaphore
	full  futexSemaphore
	empty futexSemaphore
	head  *uint64
	len   *uint64
}

// BlockingConsumer is the classical variant's read side. Consume blocks
// until a record is available.
type BlockingConsumer[T any] struct {
	seg   *segment
	l     layout
	mutex futexSemaphore
	full  futexSemaphore
	empty futexSemaphore
	head  *uint64
	len   *uint64
}

func uint64At(data []byte, offset int64) *uint64 {
	return (*uint64)(unsafe.Pointer(&data[offset]))
}

func blockingSlot[T any](data []byte, l layout, idx int64) *T {
	return (*T)(unsafe.Pointer(&data[l.slotsOffset+idx*l.recordSize]))
}

// openBlockingProducer creates the segment and initialises the head/len
// counters and the three semaphores: mutex=1, full=0, empty=capacity
// (spec §4.2).
func openBlockingProducer[T any](addr Addr, capacity int, hugePages bool) (*BlockingProducer[T], error) {
	l := blockingLayout[T](capacity)
	seg, err := openSegmentProducer(addr, l, hugePages)
	if err != nil {
		return nil, err
	}

	data := seg.Bytes()
	head := uint64At(data, blockingHeadOffset)
	length := uint64At(data, blockingLenOffset)
	*head, *length = 0, 0

	return &BlockingProducer[T]{
		seg:   seg,
		l:     l,
		mutex: newFutexSemaphore(data, blockingMutexOffset, 1),
		full:  newFutexSemaphore(data, blockingFullOffset, 0),
		empty: newFutexSemaphore(data, blockingEmptyOffset, int32(capacity)),
		head:  head,
		len:   length,
	}, nil
}

func openBlockingConsumer[T any](addr Addr) (*BlockingConsumer[T], error) {
	seg, l, err := openSegmentConsumer(addr, blockingLayout[T], true)
	if err != nil {
		return nil, err
	}
	data := seg.Bytes()
	return &BlockingConsumer[T]{
		seg:   seg,
		l:     l,
		mutex: attachFutexSemaphore(data, blockingMutexOffset),
		full:  attachFutexSemaphore(data, blockingFullOffset),
		empty: attachFutexSemaphore(data, blockingEmptyOffset),
		head:  uint64At(data, blockingHeadOffset),
		len:   uint64At(data, blockingLenOffset),
	}, nil
}

// Produce blocks until at least one slot is empty, appends item at
// (head+len) mod cap, then signals one waiting consumer.
//
// Lock ordering follows spec §4.2 exactly: the resource semaphore (empty)
// is acquired before the mutex, and the mutex is released before
// signalling the opposite resource semaphore (full) — this is what
// prevents the classical lost-wakeup/deadlock pair.
func (p *BlockingProducer[T]) Produce(item *T) error {
	p.empty.Wait()

	p.mutex.Wait()
	tail := (*p.head + *p.len) % uint64(p.l.capacity)
	*blockingSlot[T](p.seg.Bytes(), p.l, int64(tail)) = *item
	*p.len++
	p.mutex.Post()

	p.full.Post()
	return nil
}

// Cap returns the buffer's usable capacity in records.
func (p *BlockingProducer[T]) Cap() int { return int(p.l.capacity) }

// Size returns the current occupancy. Observational and unsynchronised —
// may be stale by the time the caller reads it (spec §4.2).
func (p *BlockingProducer[T]) Size() int { return int(*p.len) }

// Close publishes end-of-stream by unlinking the segment name/key so no
// new consumer can attach, then unmaps the producer's view. Consumers
// already blocked in Consume are not woken: the classical variant has no
// writer_finished signal (spec §4.5 scopes that protocol to the lock-free
// variants); callers layer their own shutdown signal if needed.
func (p *BlockingProducer[T]) Close() error {
	return p.seg.Close(true)
}

// Consume blocks until at least one slot is full, copies the slot at
// head into out, advances head, and signals the producer.
func (c *BlockingConsumer[T]) Consume() (T, error) {
	c.full.Wait()

	c.mutex.Wait()
	item := *blockingSlot[T](c.seg.Bytes(), c.l, int64(*c.head))
	*c.head = (*c.head + 1) % uint64(c.l.capacity)
	*c.len--
	c.mutex.Post()

	c.empty.Post()
	return item, nil
}

// Cap returns the buffer's usable capacity in records.
func (c *BlockingConsumer[T]) Cap() int { return int(c.l.capacity) }

// Size returns the current occupancy. Observational and unsynchronised.
func (c *BlockingConsumer[T]) Size() int { return int(*c.len) }

// Close unmaps the consumer's view without affecting the segment.
func (c *BlockingConsumer[T]) Close() error {
	return c.seg.Close(false)
}
