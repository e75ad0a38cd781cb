// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// segmentRole distinguishes the process that created a segment from one
// that merely attached to it.
type segmentRole int

const (
	roleProducer segmentRole = iota
	roleConsumer
)

// segment is the common handle over a mapped shared-memory region,
// regardless of whether it was opened by name (/dev/shm) or by System-V
// key. The segment manager (this file and segment_name.go/segment_key.go)
// only provides bytes; it does not enforce any ring discipline — that is
// layered on top by blocking.go/tail.go/giacomoni.go.
type segment struct {
	data []byte
	role segmentRole

	// closer unmaps (and, for a producer, removes the name/key) on Close.
	closer func(unlink bool) error
}

func (s *segment) Bytes() []byte { return s.data }

func (s *segment) Close(unlink bool) error {
	if s.closer == nil {
		return nil
	}
	return s.closer(unlink)
}

// openSegmentProducer creates a new segment sized for the given layout and
// returns it mapped read-write, zero-filled, with the capacity word
// already published.
func openSegmentProducer(addr Addr, l layout, hugePages bool) (*segment, error) {
	if l.totalSize <= 0 {
		return nil, fmt.Errorf("shmq: capacity must produce a positive segment size: %w", ErrSize)
	}
	var (
		seg *segment
		err error
	)
	if addr.byKey {
		seg, err = openKeyProducer(addr.key, l.totalSize, hugePages)
	} else {
		seg, err = openNamedProducer(addr.name, l.totalSize)
	}
	if err != nil {
		return nil, err
	}
	putCapacity(seg.data, l.capacity)
	return seg, nil
}

// openSegmentConsumer attaches to an existing segment and reads the
// capacity word from it (spec §4.1: consumers discover the segment size
// from the name/key alone). A name-addressed segment is first mapped
// minimally and then remapped at the size recomputeLayout gives; a
// key-addressed segment is attached whole and checked against that size.
func openSegmentConsumer(addr Addr, recomputeLayout func(capacity int) layout, writable bool) (*segment, layout, error) {
	if addr.byKey {
		return openKeyConsumer(addr.key, recomputeLayout, writable)
	}
	return openNamedConsumer(addr.name, recomputeLayout, writable)
}

func classifyErrno(err error) error {
	switch {
	case errors.Is(err, unix.EEXIST), errors.Is(err, unix.ENOENT):
		return fmt.Errorf("%v: %w", err, ErrSegmentUnavailable)
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%v: %w", err, ErrPermission)
	case errors.Is(err, unix.ENOMEM), errors.Is(err, unix.EINVAL), errors.Is(err, unix.ENOSPC):
		return fmt.Errorf("%v: %w", err, ErrSize)
	default:
		return err
	}
}
