// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command shmq-pipe drives a producer and a consumer against the same
// segment from synthetic data, replacing lock_free_test/producer.cc and
// consumer.cc's paired load-test binaries with a single self-contained
// smoke test for any of the three variants.
package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"code.hybscloud.com/spin"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/marketfeed/shmq"
	"github.com/marketfeed/shmq/internal/kline"
	"github.com/marketfeed/shmq/internal/stats"
)

type cli struct {
	Name     string `help:"POSIX-style segment name." default:"/shmq_pipe_smoke"`
	Capacity int    `help:"Segment capacity in records." default:"8192"`
	Variant  string `help:"classical | shared-tail | giacomoni" default:"giacomoni" enum:"classical,shared-tail,giacomoni"`
	Symbols  int    `help:"Number of distinct synthetic symbols." default:"8"`
	Records  int    `help:"Total records to produce. For the single-pass shared-tail and giacomoni variants this must not exceed Capacity." default:"8192"`
	Seed     uint64 `help:"Seed for the deterministic synthetic generator." default:"12345"`
}

func variantOf(s string) shmq.Variant {
	switch s {
	case "classical":
		return shmq.Classical
	case "giacomoni":
		return shmq.Giacomoni
	default:
		return shmq.SharedTail
	}
}

// fillRecord mirrors lock_free_test/producer.cc's fill_data: k is the
// synthetic symbol index, t the synthetic timestamp, and a uniform
// [0,20] draw perturbs volume/trades/open/high/low/close the same way.
func fillRecord(rng *rand.Rand, symID uint32, k, t int) kline.Record {
	r := rng.IntN(21)
	return kline.Record{
		SymID:     symID,
		Time:      int32(t),
		Volume:    uint32(k + r),
		NumTrades: uint32(r),
		Open:      int32(k + r&5),
		High:      int32(k + r&13),
		Low:       int32(k - r&7),
		Close:     int32(k + r&3),
	}
}

func main() {
	var c cli
	kong.Parse(&c)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	addr := shmq.Name(c.Name)
	variant := variantOf(c.Variant)

	prod, err := shmq.OpenProducer[kline.Record](shmq.Config{Addr: addr, Capacity: c.Capacity, Variant: variant})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open producer segment")
	}

	cons, err := shmq.OpenConsumer[kline.Record](shmq.Config{Addr: addr, Variant: variant})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open consumer segment")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		tracker := stats.NewFactorTracker()
		consumed := 0
		sw := spin.Wait{}
		for {
			rec, err := cons.Consume()
			switch {
			case err == nil:
				tracker.Update(rec)
				consumed++
				sw = spin.Wait{}
			case shmq.IsFinished(err):
				logger.Info().Int("consumed", consumed).Msg("pipe drained")
				for _, s := range tracker.Snapshot() {
					fmt.Printf("sym_id=%d volume=%d num_trades=%d factor=%d\n",
						s.SymID, s.Volume, s.NumTrades, s.Factor)
				}
				return
			case shmq.IsAgain(err):
				sw.Once()
			default:
				logger.Error().Err(err).Msg("consume failed")
				return
			}
		}
	}()

	rng := rand.New(rand.NewPCG(c.Seed, c.Seed))
	t := 9_300_0000
	produced := 0
	for produced < c.Records {
		k := produced%c.Symbols + 1
		rec := fillRecord(rng, kline.SymbolID(fmt.Sprintf("SYM%d", k)), k, t)
		if err := prod.Produce(&rec); err != nil && !shmq.IsNonFailure(err) {
			logger.Fatal().Err(err).Msg("produce failed")
		}
		produced++
		t += 3000
	}

	if err := prod.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close producer")
	}

	// The classical variant has no writer_finished signal (spec-faithful:
	// Close only unlinks the name), so a consumer still blocked in
	// Consume after the last record never wakes on its own; this tool is
	// only useful for the lock-free variants' full round trip.
	if variant != shmq.Classical {
		<-done
	}
}
