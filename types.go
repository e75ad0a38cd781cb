// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shmq

import "strconv"

// Producer is the write side of a segment. Exactly one Producer[T] exists
// per segment; it is the role that creates and, on Close, removes the
// segment.
type Producer[T any] interface {
	// Produce appends item to the buffer. Semantics depend on variant:
	//   - Classical: blocks until a slot is free, never returns ErrFull.
	//   - SharedTail / Giacomoni: non-blocking, returns ErrFull once the
	//     single-pass slot space (Cap() records) is exhausted.
	Produce(item *T) error

	// Cap returns the buffer's usable capacity in records.
	Cap() int

	// Close unlinks the segment name/key so new attachers cannot bind and
	// unmaps the producer's view. SharedTail and Giacomoni first publish
	// the writer-finished flag; Classical has no such flag and wakes no
	// blocked consumer. Existing consumer mappings remain valid.
	Close() error
}

// Consumer is one read side of a segment. Any number of Consumer[T] values
// may attach to the same segment. For SharedTail and Giacomoni each holds
// an independent, process-local read cursor and observes the entire
// stream; Classical consumers share the head/length pair in the segment,
// so each record is delivered to exactly one of them.
type Consumer[T any] interface {
	// Consume returns the next record. Semantics depend on variant:
	//   - Classical: blocks until a record is available; never returns
	//     ErrAgain or ErrFinished — callers stop calling Consume instead.
	//   - SharedTail / Giacomoni: non-blocking, returns (zero, ErrAgain) if
	//     no new record is published yet, or (zero, ErrFinished) once the
	//     producer has closed and every published record has been drained.
	Consume() (T, error)

	// Cap returns the buffer's usable capacity in records. Always equal to
	// the value the producer was opened with.
	Cap() int

	// Close unmaps the consumer's view. It does not affect the segment or
	// any other attached consumer.
	Close() error
}

// Variant selects the synchronisation strategy of a buffer.
type Variant int

const (
	// Classical is the semaphore-synchronised, blocking SPMC buffer.
	Classical Variant = iota
	// SharedTail is the lock-free buffer indexed by a monotonic shared
	// tail with a per-consumer cached-tail optimisation.
	SharedTail
	// Giacomoni is the lock-free buffer in which each slot carries its
	// own atomic "produced" flag.
	Giacomoni
)

// String returns a human-readable variant name for logs and errors.
func (v Variant) String() string {
	switch v {
	case Classical:
		return "classical"
	case SharedTail:
		return "shared-tail"
	case Giacomoni:
		return "giacomoni"
	default:
		return "unknown"
	}
}

// Addr identifies a segment: either a POSIX-style name (beginning with
// "/") or a System-V-style numeric key. Use [Name] or [Key] to construct
// one.
type Addr struct {
	name  string
	key   int
	byKey bool
}

// Name addresses a segment by a POSIX-style name, e.g. "/kline_q".
func Name(name string) Addr { return Addr{name: name} }

// Key addresses a segment by a 32-bit System-V-style numeric key.
func Key(key int) Addr { return Addr{key: key, byKey: true} }

func (a Addr) String() string {
	if a.byKey {
		return "key:" + strconv.Itoa(a.key)
	}
	return a.name
}

// Config configures opening a buffer as producer or consumer.
type Config struct {
	// Addr identifies the segment: a name (Name(...)) or a key (Key(...)).
	Addr Addr

	// Capacity is the number of records the segment is sized for.
	// Required (and meaningful) only for OpenProducer; OpenConsumer reads
	// the capacity back from the segment header.
	Capacity int

	// Variant selects the synchronisation strategy. OpenConsumer must use
	// the same Variant the producer created the segment with; there is no
	// way to recover the variant from the segment alone, since the three
	// variants are not bit-compatible.
	Variant Variant

	// HugePages requests huge-page-backed mappings for Key-addressed
	// segments. If huge pages are unavailable, opening fails rather than
	// silently falling back to normal pages. Ignored for Name-addressed
	// segments.
	HugePages bool
}
