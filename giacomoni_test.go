// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq_test

import (
	"testing"

	"github.com/marketfeed/shmq"
)

func TestGiacomoniRoundTrip(t *testing.T) {
	addr := uniqueName(t)
	prod, err := shmq.OpenProducer[probeRecord](shmq.Config{Addr: addr, Capacity: 4, Variant: shmq.Giacomoni})
	if err != nil {
		t.Fatalf("OpenProducer: %v", err)
	}
	defer prod.Close()

	cons, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Giacomoni})
	if err != nil {
		t.Fatalf("OpenConsumer: %v", err)
	}
	defer cons.Close()

	if _, err := cons.Consume(); !shmq.IsAgain(err) {
		t.Fatalf("Consume before any record: got %v, want ErrAgain", err)
	}

	rec := probeRecord{A: 9, B: 1}
	if err := prod.Produce(&rec); err != nil {
		t.Fatalf("Produce: %v", err)
	}

	got, err := cons.Consume()
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got != rec {
		t.Fatalf("Consume: got %+v, want %+v", got, rec)
	}
}

func TestGiacomoniSinglePassExhaustsAtCapacity(t *testing.T) {
	addr := uniqueName(t)
	prod, err := shmq.OpenProducer[probeRecord](shmq.Config{Addr: addr, Capacity: 3, Variant: shmq.Giacomoni})
	if err != nil {
		t.Fatalf("OpenProducer: %v", err)
	}
	defer prod.Close()

	cons, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Giacomoni})
	if err != nil {
		t.Fatalf("OpenConsumer: %v", err)
	}
	defer cons.Close()

	for i := 0; i < 3; i++ {
		rec := probeRecord{A: int64(i)}
		if err := prod.Produce(&rec); err != nil {
			t.Fatalf("Produce(%d): %v", i, err)
		}
	}

	overflow := probeRecord{A: 999}
	if err := prod.Produce(&overflow); !shmq.IsWouldBlock(err) {
		t.Fatalf("Produce beyond capacity: got %v, want ErrFull", err)
	}

	for i := 0; i < 3; i++ {
		rec, err := cons.Consume()
		if err != nil {
			t.Fatalf("Consume(%d): %v", i, err)
		}
		if rec.A != int64(i) {
			t.Fatalf("Consume(%d): got A=%d, want %d", i, rec.A, i)
		}
	}

	if _, err := cons.Consume(); !shmq.IsAgain(err) {
		t.Fatalf("Consume at end of single pass, producer still open: got %v, want ErrAgain", err)
	}
}

func TestGiacomoniBroadcastToTwoConsumers(t *testing.T) {
	addr := uniqueName(t)
	prod, err := shmq.OpenProducer[probeRecord](shmq.Config{Addr: addr, Capacity: 4, Variant: shmq.Giacomoni})
	if err != nil {
		t.Fatalf("OpenProducer: %v", err)
	}
	defer prod.Close()

	consA, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Giacomoni})
	if err != nil {
		t.Fatalf("OpenConsumer A: %v", err)
	}
	defer consA.Close()

	consB, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Giacomoni})
	if err != nil {
		t.Fatalf("OpenConsumer B: %v", err)
	}
	defer consB.Close()

	for i := 0; i < 4; i++ {
		rec := probeRecord{A: int64(i)}
		if err := prod.Produce(&rec); err != nil {
			t.Fatalf("Produce(%d): %v", i, err)
		}
	}

	for _, c := range []shmq.Consumer[probeRecord]{consA, consB} {
		for i := 0; i < 4; i++ {
			rec, err := c.Consume()
			if err != nil {
				t.Fatalf("Consume(%d): %v", i, err)
			}
			if rec.A != int64(i) {
				t.Fatalf("Consume(%d): got A=%d, want %d", i, rec.A, i)
			}
		}
	}
}

func TestGiacomoniFinishedBeforeCapacityReached(t *testing.T) {
	addr := uniqueName(t)
	prod, err := shmq.OpenProducer[probeRecord](shmq.Config{Addr: addr, Capacity: 4, Variant: shmq.Giacomoni})
	if err != nil {
		t.Fatalf("OpenProducer: %v", err)
	}

	cons, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Giacomoni})
	if err != nil {
		t.Fatalf("OpenConsumer: %v", err)
	}
	defer cons.Close()

	rec := probeRecord{A: 1}
	if err := prod.Produce(&rec); err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if err := prod.Close(); err != nil {
		t.Fatalf("Close producer: %v", err)
	}

	if _, err := cons.Consume(); err != nil {
		t.Fatalf("Consume the one published record: %v", err)
	}
	if _, err := cons.Consume(); !shmq.IsFinished(err) {
		t.Fatalf("Consume after producer finished early: got %v, want ErrFinished", err)
	}
}
