// Copyright the shmq authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kline defines the fixed-size record transferred through shmq
// buffers and the decoder that turns a Binance-style kline websocket
// frame into one.
package kline

import (
	"hash/fnv"
	"strconv"

	json "github.com/goccy/go-json"
)

// priceScale converts the decimal price/volume strings a kline frame
// carries into fixed-point integers, matching the original producer's
// int32 price fields (grounded on lock_free_test/data.h's KLineData).
const priceScale = 1e4

// Record is the bitwise-copyable type shmq transfers between processes.
// Field layout is grounded directly on lock_free_test/data.h's KLineData:
// same field order, same widths, so a C++ consumer reading the same
// segment would see an identical byte pattern.
type Record struct {
	SymID     uint32
	Time      int32
	Volume    uint32
	NumTrades uint32
	Open      int32
	Close     int32
	High      int32
	Low       int32
}

// SymbolID derives a stable 32-bit identifier for a ticker symbol, since
// the wire format carries the symbol as a string but Record needs a fixed
// width field. No symbol-interning library appears anywhere in the
// example pack, so this is a direct FNV-1a hash rather than a sequential
// table: deterministic across producer and consumer processes without
// requiring them to share a startup-ordered map.
func SymbolID(symbol string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return h.Sum32()
}

// frame mirrors the fields kline_common.h reads out of the Binance kline
// websocket payload via yyjson: event time E, symbol s, and the nested
// kline object k (open/close time t/T, OHLCV o/h/l/c/v as decimal
// strings, trade count n, closed flag x).
type frame struct {
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	K         struct {
		OpenTime  int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Open      string `json:"o"`
		Close     string `json:"c"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Volume    string `json:"v"`
		Trades    uint32 `json:"n"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

// Decode parses a raw kline websocket message into a Record plus whether
// the candle it describes has closed (kline_is_closed in kline_common.h).
// Malformed decimal fields are treated as zero rather than rejecting the
// whole frame, mirroring yyjson_get_str returning "" on a missing key.
func Decode(payload []byte) (Record, bool, error) {
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return Record{}, false, err
	}

	rec := Record{
		SymID:     SymbolID(f.Symbol),
		Time:      int32(f.K.OpenTime / 1000),
		Volume:    uint32(parseFixed(f.K.Volume)),
		NumTrades: f.K.Trades,
		Open:      int32(parseFixed(f.K.Open)),
		Close:     int32(parseFixed(f.K.Close)),
		High:      int32(parseFixed(f.K.High)),
		Low:       int32(parseFixed(f.K.Low)),
	}
	return rec, f.K.Closed, nil
}

func parseFixed(s string) int64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(v * priceScale)
}
