// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrFull is returned by a producer when the single-pass slot space of a
// lock-free buffer is exhausted. Callers of the classical (blocking)
// variant never see ErrFull: Produce blocks instead of returning it.
//
// This is an alias for [iox.ErrWouldBlock]: Full is a control-flow signal,
// not a failure.
var ErrFull = iox.ErrWouldBlock

// ErrAgain is returned by a lock-free consumer when no new record is
// available yet. Not an error in the semantic sense — it is the normal
// vocabulary of the stream. An alias for [iox.ErrWouldBlock] for ecosystem
// consistency with ErrFull: both mean "try again later".
var ErrAgain = iox.ErrWouldBlock

// ErrFinished is returned once the producer has closed and every record it
// published has been drained by this consumer. Once a consumer observes
// ErrFinished, subsequent calls return ErrFinished forever.
var ErrFinished = errors.New("shmq: stream finished")

// ErrSegmentUnavailable indicates the requested name or key does not exist
// (consumer attach) or already exists (producer create).
var ErrSegmentUnavailable = errors.New("shmq: segment unavailable")

// ErrSize indicates the requested byte size is zero, overflows, or cannot
// be allocated — including a huge-page request the host cannot honor.
var ErrSize = errors.New("shmq: invalid segment size")

// ErrPermission indicates insufficient OS permission to create or attach
// to the segment.
var ErrPermission = errors.New("shmq: permission denied")

// ErrTypeMisuse indicates a producer-only operation was attempted on a
// consumer-role value or vice versa. The typed API (OpenProducer returns a
// Producer[T], OpenConsumer returns a Consumer[T]) makes this unreachable
// through normal use, and no function in this package returns it.
var ErrTypeMisuse = errors.New("shmq: producer/consumer role mismatch")

// IsWouldBlock reports whether err is ErrFull or ErrAgain: the operation
// could not proceed immediately and should be retried.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsAgain is an alias for IsWouldBlock, matching ErrAgain's naming for
// callers on the lock-free consumer paths.
func IsAgain(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsFinished reports whether err is ErrFinished.
func IsFinished(err error) bool {
	return errors.Is(err, ErrFinished)
}

// IsNonFailure reports whether err represents a non-failure condition:
// nil, ErrFull, ErrAgain, or ErrFinished.
func IsNonFailure(err error) bool {
	return err == nil || IsWouldBlock(err) || IsFinished(err)
}
