// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq

import "fmt"

// OpenProducer creates a new segment for cfg.Addr and returns the
// Producer[T] for the variant cfg.Variant selects. Fails with
// ErrSegmentUnavailable if the name/key already exists.
//
// Adapted from the teacher's Build dispatch (options.go): there, a
// Builder's flags select among SPSC/SPMC/MPSC/MPMC; here cfg.Variant
// selects directly among the three buffer implementations, since role
// (producer vs. consumer) is already split at the constructor rather
// than inferred from flags.
func OpenProducer[T any](cfg Config) (Producer[T], error) {
	switch cfg.Variant {
	case Classical:
		return openBlockingProducer[T](cfg.Addr, cfg.Capacity, cfg.HugePages)
	case SharedTail:
		return openTailProducer[T](cfg.Addr, cfg.Capacity, cfg.HugePages)
	case Giacomoni:
		return openFlagProducer[T](cfg.Addr, cfg.Capacity, cfg.HugePages)
	default:
		return nil, fmt.Errorf("shmq: unknown variant %v", cfg.Variant)
	}
}

// OpenConsumer attaches to an existing segment at cfg.Addr as the variant
// cfg.Variant selects. cfg.Capacity is ignored: the capacity is always
// read back from the segment's header. cfg.Variant must match what the
// producer opened the segment with; there is no way to recover the
// variant from the segment bytes alone.
func OpenConsumer[T any](cfg Config) (Consumer[T], error) {
	switch cfg.Variant {
	case Classical:
		return openBlockingConsumer[T](cfg.Addr)
	case SharedTail:
		return openTailConsumer[T](cfg.Addr)
	case Giacomoni:
		return openFlagConsumer[T](cfg.Addr)
	default:
		return nil, fmt.Errorf("shmq: unknown variant %v", cfg.Variant)
	}
}
