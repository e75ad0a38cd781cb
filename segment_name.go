// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// shmDir is where POSIX-style named segments live on Linux — the same
// tmpfs mount glibc's shm_open uses, opened directly since Go has no cgo
// shm_open wrapper (grounded on the pack's AlephTX seqlock ring, which
// opens "/dev/shm/"+name for the same reason).
const shmDir = "/dev/shm"

func namedPath(name string) (string, error) {
	if !strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("shmq: name %q must start with \"/\": %w", name, ErrSegmentUnavailable)
	}
	if strings.Contains(name[1:], "/") {
		return "", fmt.Errorf("shmq: name %q must not contain a second \"/\": %w", name, ErrSegmentUnavailable)
	}
	return shmDir + name, nil
}

// openNamedProducer creates a new name-addressed segment, truncated to
// size and zero-filled, mapped read-write. Fails with ErrSegmentUnavailable
// if the name already exists (spec §4.1: "create-or-fail").
func openNamedProducer(name string, size int64) (*segment, error) {
	path, err := namedPath(name)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, classifyErrno(fmt.Errorf("shmq: create %s: %w", path, err))
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Unlink(path)
		return nil, classifyErrno(fmt.Errorf("shmq: truncate %s to %d bytes: %w", path, size, err))
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Unlink(path)
		return nil, classifyErrno(fmt.Errorf("shmq: mmap %s: %w", path, err))
	}

	return &segment{
		data: data,
		role: roleProducer,
		closer: func(unlink bool) error {
			err := unix.Munmap(data)
			if unlink {
				if uerr := unix.Unlink(path); uerr != nil && err == nil {
					err = uerr
				}
			}
			return err
		},
	}, nil
}

// openNamedConsumer attaches to an existing name-addressed segment. It
// first maps a single page read-only to discover the capacity word (spec
// §4.1: "map at least the first word to read the capacity"), then remaps
// the full region the caller's layout function computes from that
// capacity, read-only for lock-free variants or read-write for the
// classical variant (it must update head/len/semaphore words).
func openNamedConsumer(name string, recomputeLayout func(capacity int) layout, writable bool) (*segment, layout, error) {
	path, err := namedPath(name)
	if err != nil {
		return nil, layout{}, err
	}

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, layout{}, classifyErrno(fmt.Errorf("shmq: open %s: %w", path, err))
	}
	defer unix.Close(fd)

	page := unix.Getpagesize()
	head, err := unix.Mmap(fd, 0, page, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, layout{}, classifyErrno(fmt.Errorf("shmq: mmap header of %s: %w", path, err))
	}
	capacity := peekCapacity(head)
	if err := unix.Munmap(head); err != nil {
		return nil, layout{}, fmt.Errorf("shmq: unmap header probe of %s: %w", path, err)
	}

	l := recomputeLayout(int(capacity))

	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(fd, 0, int(l.totalSize), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, layout{}, classifyErrno(fmt.Errorf("shmq: mmap %s: %w", path, err))
	}

	seg := &segment{
		data: data,
		role: roleConsumer,
		closer: func(bool) error {
			return unix.Munmap(data)
		},
	}
	return seg, l, nil
}
