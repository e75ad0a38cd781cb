// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// openKeyProducer creates a new System-V key-addressed segment of size
// bytes, optionally huge-page-backed. Per spec §4.1 policy, a huge-page
// request that the host cannot satisfy fails outright rather than
// silently falling back to normal pages.
func openKeyProducer(key int, size int64, hugePages bool) (*segment, error) {
	flag := unix.IPC_CREAT | unix.IPC_EXCL | 0o600
	if hugePages {
		flag |= unix.SHM_HUGETLB
	}

	id, err := unix.SysvShmGet(key, int(size), flag)
	if err != nil {
		return nil, classifyErrno(fmt.Errorf("shmq: shmget key=%d size=%d: %w", key, size, err))
	}

	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		unix.SysvShmCtl(id, unix.IPC_RMID, nil)
		return nil, classifyErrno(fmt.Errorf("shmq: shmat id=%d: %w", id, err))
	}

	return &segment{
		data: data,
		role: roleProducer,
		closer: func(unlink bool) error {
			err := unix.SysvShmDetach(data)
			if unlink {
				if _, cerr := unix.SysvShmCtl(id, unix.IPC_RMID, nil); cerr != nil && err == nil {
					err = cerr
				}
			}
			return err
		},
	}, nil
}

// openKeyConsumer attaches to an existing key-addressed segment.
// SysvShmAttach maps the entire segment in one call at the size it was
// created with, so — unlike the name-addressed path — there is no
// separate "peek the header, then remap" step: the capacity word is read
// directly out of the attached region.
func openKeyConsumer(key int, recomputeLayout func(capacity int) layout, writable bool) (*segment, layout, error) {
	id, err := unix.SysvShmGet(key, 0, 0)
	if err != nil {
		return nil, layout{}, classifyErrno(fmt.Errorf("shmq: shmget key=%d: %w", key, err))
	}

	attachFlag := 0
	if !writable {
		attachFlag = unix.SHM_RDONLY
	}
	data, err := unix.SysvShmAttach(id, 0, attachFlag)
	if err != nil {
		return nil, layout{}, classifyErrno(fmt.Errorf("shmq: shmat id=%d: %w", id, err))
	}
	if len(data) < 8 {
		unix.SysvShmDetach(data)
		return nil, layout{}, fmt.Errorf("shmq: segment for key=%d too small to hold a header: %w", key, ErrSize)
	}

	capacity := peekCapacity(data)
	l := recomputeLayout(int(capacity))
	if int64(len(data)) < l.totalSize {
		unix.SysvShmDetach(data)
		return nil, layout{}, fmt.Errorf("shmq: segment for key=%d is %d bytes, want >= %d: %w", key, len(data), l.totalSize, ErrSize)
	}

	seg := &segment{
		data: data,
		role: roleConsumer,
		closer: func(bool) error {
			return unix.SysvShmDetach(data)
		},
	}
	return seg, l, nil
}
