// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import (
	"encoding/binary"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// flagStride is the per-slot width of the produced-flags array in the
// Giacomoni variant. Spec §6 draws this as a literal one byte per slot
// (matching the original's std::atomic<bool>), but Go exposes no
// sub-word atomic primitive: atomix.Bool is the narrowest cross-process
// atomic the corpus provides, so the flags array is packed at its
// natural size instead of a bare byte.
var flagStride = int64(unsafe.Sizeof(atomix.Bool{}))

// layout describes the byte layout of a segment for a given record type T
// and capacity: where the header ends, where the slot array begins (padded
// to alignof(T), per spec §9), and the total segment size. Every consumer
// can recompute this from the capacity word alone, since T and Variant are
// known at the call site (generics) rather than discovered from the
// segment.
type layout struct {
	headerSize  int64
	slotsOffset int64
	recordSize  int64
	capacity    int64
	totalSize   int64
}

// capacityOffset is the fixed byte offset of the capacity field. It is the
// segment's first word in every variant (spec §3: "The capacity must be
// readable from the segment's first word without attaching the full
// region").
const capacityOffset = 0

// giacomoniLayout lays out the per-slot-flag variant: capacity @0 (8
// bytes), writer_finished @8 (1 byte), produced flags (cap x flagStride)
// starting at offset 64, then the slot array padded up to alignof(T).
// Adapted from spec §6's bit-exact byte diagram; see flagStride for why
// the flag width isn't literally one byte.
func giacomoniLayout[T any](capacity int) layout {
	var zero T
	recSize := int64(unsafe.Sizeof(zero))
	align := int64(unsafe.Alignof(zero))
	cap64 := int64(capacity)

	const flagsOffset = 64
	slotsOffset := roundUp(flagsOffset+cap64*flagStride, align)
	total := slotsOffset + cap64*recSize

	return layout{
		headerSize:  slotsOffset,
		slotsOffset: slotsOffset,
		recordSize:  recSize,
		capacity:    cap64,
		totalSize:   total,
	}
}

// giacomoniFlagsOffset is the fixed byte offset of the produced-flags array
// in the per-slot-flag variant.
const giacomoniFlagsOffset = 64

// giacomoniFinishedOffset is the fixed byte offset of the writer_finished
// byte in the per-slot-flag variant.
const giacomoniFinishedOffset = 8

// tailLayout lays out the shared-tail variant: capacity @0, a
// cache-line-isolated writer_finished flag at offset 64, a
// cache-line-isolated atomic tail at offset 128, then the slot array
// padded up to alignof(T) starting no earlier than offset 192.
func tailLayout[T any](capacity int) layout {
	var zero T
	recSize := int64(unsafe.Sizeof(zero))
	align := int64(unsafe.Alignof(zero))
	cap64 := int64(capacity)

	const headerBytes = 3 * cacheLineSize // capacity line, finished line, tail line
	slotsOffset := roundUp(headerBytes, align)
	total := slotsOffset + cap64*recSize

	return layout{
		headerSize:  slotsOffset,
		slotsOffset: slotsOffset,
		recordSize:  recSize,
		capacity:    cap64,
		totalSize:   total,
	}
}

const (
	tailFinishedOffset = cacheLineSize     // 64
	tailTailOffset     = 2 * cacheLineSize // 128
)

// blockingLayout lays out the classical semaphore-synchronised variant:
// capacity @0, head/len counters, and three futex-backed semaphore words,
// all packed into the first cache line, then the slot array padded up to
// alignof(T) starting no earlier than offset 64.
func blockingLayout[T any](capacity int) layout {
	var zero T
	recSize := int64(unsafe.Sizeof(zero))
	align := int64(unsafe.Alignof(zero))
	cap64 := int64(capacity)

	const headerBytes = cacheLineSize
	slotsOffset := roundUp(headerBytes, align)
	total := slotsOffset + cap64*recSize

	return layout{
		headerSize:  slotsOffset,
		slotsOffset: slotsOffset,
		recordSize:  recSize,
		capacity:    cap64,
		totalSize:   total,
	}
}

const (
	blockingHeadOffset  = 8  // uint64
	blockingLenOffset   = 16 // uint64
	blockingMutexOffset = 24 // int32 futex word
	blockingFullOffset  = 28 // int32 futex word
	blockingEmptyOffset = 32 // int32 futex word
)

// putCapacity writes the capacity word at the segment's first 8 bytes.
func putCapacity(data []byte, capacity int64) {
	binary.LittleEndian.PutUint64(data[capacityOffset:], uint64(capacity))
}

// peekCapacity reads the capacity word from a mapping of at least 8 bytes.
// Producers write it once before any consumer can attach, so no atomic
// load is required to observe it safely.
func peekCapacity(data []byte) int64 {
	return int64(binary.LittleEndian.Uint64(data[capacityOffset:]))
}
