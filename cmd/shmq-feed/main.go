// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command shmq-feed connects to a Binance-style kline websocket stream
// and republishes closed candles into a shmq segment, replacing
// shm_bbuffer_spmc_kline.cc's single-process websocketpp-to-shm pipeline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/marketfeed/shmq"
	"github.com/marketfeed/shmq/internal/ingest"
	"github.com/marketfeed/shmq/internal/kline"
)

type envConfig struct {
	LogLevel string `env:"SHMQ_LOG_LEVEL" env-default:"info"`
}

type cli struct {
	Name      string `help:"POSIX-style segment name, e.g. /kline_q." xor:"addr"`
	Key       int    `help:"System-V-style numeric segment key." xor:"addr"`
	Capacity  int    `help:"Segment capacity in records. The shared-tail and giacomoni variants are single-pass: once Capacity records have been published, further records are dropped." default:"65536"`
	Variant   string `help:"classical | shared-tail | giacomoni" default:"shared-tail" enum:"classical,shared-tail,giacomoni"`
	HugePages bool   `help:"Request huge-page-backed mapping (key-addressed only)."`
	URL       string `help:"Kline websocket URL." default:"wss://stream.binance.com:9443/ws/btcusdt@kline_1m"`
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

	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		log.Fatal().Err(err).Msg("failed to read env config")
	}
	level, err := zerolog.ParseLevel(env.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	addr := shmq.Name(c.Name)
	if c.Key != 0 {
		addr = shmq.Key(c.Key)
	}

	prod, err := shmq.OpenProducer[kline.Record](shmq.Config{
		Addr:      addr,
		Capacity:  c.Capacity,
		Variant:   variantOf(c.Variant),
		HugePages: c.HugePages,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open producer segment")
	}
	defer prod.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := ingest.New(c.URL, logger)
	err = client.Run(ctx, func(rec kline.Record) {
		switch perr := prod.Produce(&rec); {
		case perr == nil:
		case shmq.IsWouldBlock(perr):
			logger.Warn().Msg("segment exhausted (single-pass capacity reached), dropping record")
		default:
			logger.Error().Err(perr).Msg("failed to publish kline record")
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("ingest stream ended")
	}
}
