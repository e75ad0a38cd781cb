// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

// cacheLineSize is the padding unit used throughout the header layouts to
// keep producer-written and consumer-written fields on disjoint cache
// lines (spec: "false sharing mitigations" — writer_finished, the shared
// tail, and any per-cursor field each get their own line; a 64-byte pad
// between them, never left to compiler layout).
const cacheLineSize = 64

// pad is a full cache line of padding between two header fields.
type pad [cacheLineSize]byte

// padAfter8 pads out a cache line following an 8-byte field.
type padAfter8 [cacheLineSize - 8]byte

// padAfter1 pads out a cache line following a single-byte field.
type padAfter1 [cacheLineSize - 1]byte

// padAfter4 pads out a cache line following a 4-byte field.
type padAfter4 [cacheLineSize - 4]byte

// roundUp rounds n up to the nearest multiple of align (align must be a
// power of two). Used to place the slot array at an alignof(T) boundary
// per spec §9 ("alignment of the slot array... must be explicit").
func roundUp(n, align int64) int64 {
	return (n + align - 1) &^ (align - 1)
}
