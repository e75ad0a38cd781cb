// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shmq provides bounded single-producer/multiple-consumer (SPMC)
// ring buffers backed by shared memory, for low-latency handoff between
// one writer process and any number of reader processes.
//
// # Variants
//
// Three ring-buffer variants trade off blocking semantics, coherence
// traffic, and memory-ordering discipline:
//
//   - Classical: a head+length ring guarded by three process-shared
//     semaphores (mutex/full/empty). Produce and Consume block.
//   - SharedTail: a lock-free, single-pass buffer indexed by a monotonic
//     shared tail, with a per-consumer cached-tail optimisation to
//     suppress coherence traffic.
//   - Giacomoni: a lock-free, single-pass buffer where each slot carries
//     its own atomic "produced" flag, so producer and consumer touch
//     disjoint cache lines per slot.
//
// # Roles
//
// A buffer instance is a producer (creates the segment) or a consumer
// (attaches to an existing segment); the two roles are distinct Go types
// returned by distinct constructors, so calling a producer method on a
// consumer (or vice versa) is a compile error rather than a runtime one.
// Exactly one producer may exist per segment; any number of consumers may
// attach. For SharedTail and Giacomoni, each consumer maintains its own
// private read cursor and every consumer observes the entire stream
// (SPMC-broadcast, not SPMC-partition). Classical is a genuine
// competing-consumers queue instead: its consumers share one head/length
// pair in the segment header, so each record is delivered to exactly one
// of them.
//
// # Quick start
//
//	cfg := shmq.Config{Addr: shmq.Name("/kline_q"), Capacity: 4096, Variant: shmq.SharedTail}
//	prod, err := shmq.OpenProducer[kline.Record](cfg)
//	...
//	cons, err := shmq.OpenConsumer[kline.Record](cfg)
//	...
//	rec, err := cons.Consume()
//	switch {
//	case err == nil:
//		// use rec
//	case shmq.IsAgain(err):
//		// no new record yet, back off and retry
//	case shmq.IsFinished(err):
//		// producer closed and the stream is fully drained
//	}
//
// # Record requirements
//
// The record type T must be bitwise-copyable: no pointers, no finalizers
// of consequence, fixed size. Records are transferred with a byte-wise
// copy between address spaces that do not share a heap.
//
// # Non-goals
//
// Multi-producer support, dynamic resizing, persistence across a host
// reboot, cross-architecture wire compatibility, and encryption or
// authentication of shared memory contents (OS file-mode permissions are
// the sole access control).
//
// # Dependencies
//
// shmq uses [code.hybscloud.com/iox] for semantic (non-failure) errors,
// [code.hybscloud.com/atomix] for atomic fields with explicit memory
// ordering, and [golang.org/x/sys/unix] for the mmap, System-V shared
// memory, and futex syscalls that make the buffers cross-process. The
// package itself never blocks-then-retries on the lock-free paths — that
// policy belongs to the caller; the cmd/ drivers use
// [code.hybscloud.com/spin] to back off between ErrAgain retries.
package shmq
