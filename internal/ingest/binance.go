// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ingest connects to a Binance-style kline websocket stream and
// decodes frames into [kline.Record] values, replacing
// get_kline_data.cc's websocketpp-based BinanceKlineClient with an
// idiomatic gorilla/websocket client.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/marketfeed/shmq/internal/kline"
)

// Client streams klines from a single Binance raw kline-stream websocket
// endpoint (one kline payload per message; combined-stream envelopes are
// not unwrapped) and decodes each message into a [kline.Record]. Only closed
// candles are delivered, mirroring the original's kline_is_closed gate in
// shm_bbuffer_spmc_kline.cc, which only feeds the shared-memory buffer
// once a candle has finished forming.
type Client struct {
	url string
	log zerolog.Logger
}

// New returns a Client that will dial url on Run.
func New(url string, log zerolog.Logger) *Client {
	return &Client{url: url, log: log.With().Str("component", "ingest").Logger()}
}

// Run dials the stream and delivers decoded, closed klines to onClose
// until ctx is cancelled or the connection drops. It reconnects with a
// fixed backoff on drop, since a long-lived feed process outlives any
// single TCP connection the way the original's websocketpp client did
// (run() blocks forever, retried at the process-supervisor level there;
// here the retry is internal so callers get one uninterrupted stream).
func (c *Client) Run(ctx context.Context, onClose func(kline.Record)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.runOnce(ctx, onClose); err != nil {
			c.log.Warn().Err(err).Msg("kline stream dropped, reconnecting")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func (c *Client) runOnce(ctx context.Context, onClose func(kline.Record)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("ingest: dial %s: %w", c.url, err)
	}
	defer conn.Close()
	c.log.Info().Str("url", c.url).Msg("kline stream connected")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("ingest: read: %w", err)
		}

		rec, closed, err := kline.Decode(payload)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping malformed kline frame")
			continue
		}
		if !closed {
			continue
		}
		onClose(rec)
	}
}
