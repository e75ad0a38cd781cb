// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// futexSemaphore is a counting semaphore over a single int32 word living
// in shared memory, parked with the FUTEX_WAIT/FUTEX_WAKE syscalls. This
// is the Go-idiomatic stand-in for the C++ original's sem_init(...,
// pshared=1, ...): a futex word is inherently process-shared on Linux
// because the kernel keys parked waiters off the word's physical page
// rather than any per-process state, so no special "shared" flag is
// needed the way POSIX semaphores require one.
//
// The value must never be observed negative; Wait spins-then-blocks until
// it can claim a unit, Post releases one unit and wakes at most one
// waiter, matching sem_wait/sem_post.
type futexSemaphore struct {
	word *int32
}

// newFutexSemaphore overlays a semaphore onto the int32 at the given byte
// offset of a shared-memory region. init is the initial count (mutex: 1,
// full: 0, empty: capacity).
func newFutexSemaphore(data []byte, offset int64, init int32) futexSemaphore {
	w := (*int32)(unsafe.Pointer(&data[offset]))
	atomic.StoreInt32(w, init)
	return futexSemaphore{word: w}
}

// attachFutexSemaphore overlays a semaphore onto an already-initialised
// word (consumer/attacher side — never (re)writes the initial count).
func attachFutexSemaphore(data []byte, offset int64) futexSemaphore {
	return futexSemaphore{word: (*int32)(unsafe.Pointer(&data[offset]))}
}

// Wait blocks until a unit is available, then claims it.
func (s futexSemaphore) Wait() {
	for {
		v := atomic.LoadInt32(s.word)
		if v > 0 {
			if atomic.CompareAndSwapInt32(s.word, v, v-1) {
				return
			}
			continue
		}
		// Block while the word is still v. A concurrent Post that changes
		// the word races harmlessly with this call: the kernel re-checks
		// the value atomically and returns EAGAIN instead of sleeping if
		// it no longer matches, and we just loop and re-observe.
		_, err := unix.Futex(s.word, unix.FUTEX_WAIT, v, nil, nil, 0)
		if err != nil && err != unix.EAGAIN && err != unix.EINTR {
			// Spurious wake from an unexpected errno: fall through and
			// re-check the word rather than panicking; the loop is the
			// source of truth, not the syscall's return value.
			continue
		}
	}
}

// Post releases one unit and wakes at most one waiter.
func (s futexSemaphore) Post() {
	atomic.AddInt32(s.word, 1)
	unix.Futex(s.word, unix.FUTEX_WAKE, 1, nil, nil, 0)
}
