// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package shmq_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marketfeed/shmq"
)

type probeRecord struct {
	A int64
	B int32
}

func uniqueName(t *testing.T) shmq.Addr {
	// Subtest names contain "/", which a segment name may only use as its
	// leading character.
	base := strings.ReplaceAll(t.Name(), "/", "_")
	return shmq.Name(fmt.Sprintf("/shmq_test_%s_%d", base, time.Now().UnixNano()))
}

func TestBlockingRoundTrip(t *testing.T) {
	addr := uniqueName(t)
	prod, err := shmq.OpenProducer[probeRecord](shmq.Config{Addr: addr, Capacity: 4, Variant: shmq.Classical})
	if err != nil {
		t.Fatalf("OpenProducer: %v", err)
	}
	defer prod.Close()

	cons, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Classical})
	if err != nil {
		t.Fatalf("OpenConsumer: %v", err)
	}
	defer cons.Close()

	if prod.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", prod.Cap())
	}

	rec := probeRecord{A: 42, B: 7}
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

func TestBlockingFillToCapacityThenConsumeAll(t *testing.T) {
	addr := uniqueName(t)
	prod, err := shmq.OpenProducer[probeRecord](shmq.Config{Addr: addr, Capacity: 4, Variant: shmq.Classical})
	if err != nil {
		t.Fatalf("OpenProducer: %v", err)
	}
	defer prod.Close()

	cons, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Classical})
	if err != nil {
		t.Fatalf("OpenConsumer: %v", err)
	}
	defer cons.Close()

	for i := 0; i < 4; i++ {
		rec := probeRecord{A: int64(i)}
		if err := prod.Produce(&rec); err != nil {
			t.Fatalf("Produce(%d): %v", i, err)
		}
	}

	for i := 0; i < 4; i++ {
		got, err := cons.Consume()
		if err != nil {
			t.Fatalf("Consume(%d): %v", i, err)
		}
		if got.A != int64(i) {
			t.Fatalf("Consume(%d): got A=%d, want %d", i, got.A, i)
		}
	}
}

func TestBlockingProducerBlocksWhenFull(t *testing.T) {
	addr := uniqueName(t)
	prod, err := shmq.OpenProducer[probeRecord](shmq.Config{Addr: addr, Capacity: 1, Variant: shmq.Classical})
	if err != nil {
		t.Fatalf("OpenProducer: %v", err)
	}
	defer prod.Close()

	cons, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Classical})
	if err != nil {
		t.Fatalf("OpenConsumer: %v", err)
	}
	defer cons.Close()

	first := probeRecord{A: 1}
	if err := prod.Produce(&first); err != nil {
		t.Fatalf("Produce: %v", err)
	}

	produced := make(chan struct{})
	go func() {
		second := probeRecord{A: 2}
		_ = prod.Produce(&second)
		close(produced)
	}()

	select {
	case <-produced:
		t.Fatal("Produce returned before the consumer freed a slot")
	case <-time.After(50 * time.Millisecond):
	}

	if _, err := cons.Consume(); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	select {
	case <-produced:
	case <-time.After(time.Second):
		t.Fatal("Produce did not unblock after a slot freed up")
	}
}

func TestBlockingTwoConsumersCompeteForEachRecord(t *testing.T) {
	addr := uniqueName(t)
	prod, err := shmq.OpenProducer[probeRecord](shmq.Config{Addr: addr, Capacity: 8, Variant: shmq.Classical})
	if err != nil {
		t.Fatalf("OpenProducer: %v", err)
	}
	defer prod.Close()

	consA, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Classical})
	if err != nil {
		t.Fatalf("OpenConsumer A: %v", err)
	}
	defer consA.Close()

	consB, err := shmq.OpenConsumer[probeRecord](shmq.Config{Addr: addr, Variant: shmq.Classical})
	if err != nil {
		t.Fatalf("OpenConsumer B: %v", err)
	}
	defer consB.Close()

	const total = 8
	for i := 0; i < total; i++ {
		rec := probeRecord{A: int64(i)}
		if err := prod.Produce(&rec); err != nil {
			t.Fatalf("Produce(%d): %v", i, err)
		}
	}

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	drain := func(c shmq.Consumer[probeRecord], n int) {
		defer wg.Done()
		for i := 0; i < n; i++ {
			rec, err := c.Consume()
			if err != nil {
				t.Errorf("Consume: %v", err)
				return
			}
			mu.Lock()
			seen[rec.A] = true
			mu.Unlock()
		}
	}
	wg.Add(2)
	go drain(consA, total/2)
	go drain(consB, total/2)
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("each record should be delivered to exactly one consumer: got %d distinct records, want %d", len(seen), total)
	}
}
