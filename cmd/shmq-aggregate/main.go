// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command shmq-aggregate drains a shmq kline stream and prints running
// per-symbol factor statistics, replacing lock_free_test/consumer.cc's
// StatMap CSV dump with a periodic structured log line per symbol.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.hybscloud.com/spin"
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/marketfeed/shmq"
	"github.com/marketfeed/shmq/internal/kline"
	"github.com/marketfeed/shmq/internal/stats"
)

type cli struct {
	Name     string        `help:"POSIX-style segment name, e.g. /kline_q." xor:"addr"`
	Key      int           `help:"System-V-style numeric segment key." xor:"addr"`
	Variant  string        `help:"classical | shared-tail | giacomoni" default:"shared-tail" enum:"classical,shared-tail,giacomoni"`
	Interval time.Duration `help:"How often to log the running snapshot." default:"10m"`
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

func main() {
	var c cli
	kong.Parse(&c)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	addr := shmq.Name(c.Name)
	if c.Key != 0 {
		addr = shmq.Key(c.Key)
	}

	cons, err := shmq.OpenConsumer[kline.Record](shmq.Config{Addr: addr, Variant: variantOf(c.Variant)})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open consumer segment")
	}
	defer cons.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracker := stats.NewFactorTracker()

	go func() {
		ticker := time.NewTicker(c.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logSnapshot(logger, tracker)
			}
		}
	}()

	sw := spin.Wait{}
	for ctx.Err() == nil {
		rec, err := cons.Consume()
		switch {
		case err == nil:
			tracker.Update(rec)
			sw = spin.Wait{}
		case shmq.IsFinished(err):
			logger.Info().Msg("stream finished, producer closed and drained")
			logSnapshot(logger, tracker)
			return
		case shmq.IsAgain(err):
			sw.Once()
		default:
			logger.Error().Err(err).Msg("consume failed")
			return
		}
	}
	logSnapshot(logger, tracker)
}

func logSnapshot(logger zerolog.Logger, tracker *stats.FactorTracker) {
	for _, s := range tracker.Snapshot() {
		logger.Info().
			Uint32("sym_id", s.SymID).
			Uint64("volume", s.Volume).
			Uint64("num_trades", s.NumTrades).
			Int64("factor", s.Factor).
			Msg("symbol snapshot")
	}
}
