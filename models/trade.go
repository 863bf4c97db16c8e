package models

import "time"

// SourceOKEx identifies the exchange in every canonical trade record.
const SourceOKEx = "OKEx"

// TradeSide encodes the taker side of a trade: 1 for buy, 0 for sell.
type TradeSide int8

const (
	SideSell TradeSide = 0
	SideBuy  TradeSide = 1
)

// TradeTick is the canonical trade record produced by the normalizer.
// Size is denominated in the base asset: for derivatives the contract count
// is converted through the instrument's contract value. Immutable once built.
type TradeTick struct {
	Source      string    `json:"source"`
	TimestampMs int64     `json:"timestamp_ms"`
	Price       float64   `json:"price"`
	Size        float64   `json:"size"`
	Side        TradeSide `json:"side"`
}

// OkexTrade mirrors a single entry of the `data` list in a trade websocket
// message. Quantity arrives in either `size` (spot) or `qty` (derivatives),
// never both.
type OkexTrade struct {
	InstrumentID string `json:"instrument_id"`
	Price        string `json:"price"`
	Size         string `json:"size,omitempty"`
	Qty          string `json:"qty,omitempty"`
	Side         string `json:"side"`
	Timestamp    string `json:"timestamp"`
}

// TradeEnvelope is a decoded trade websocket frame.
type TradeEnvelope struct {
	Table string      `json:"table,omitempty"`
	Data  []OkexTrade `json:"data"`
}

// RawTradeMessage wraps one decoded trade frame on its way from the feed
// reader to the processor.
type RawTradeMessage struct {
	Exchange  string
	Table     string
	Data      []byte
	Timestamp time.Time
}

// BatchTradeMessage is one downstream emission: either a coalesced run of
// single-trade frames or a multi-trade frame passed through as-is.
type BatchTradeMessage struct {
	BatchID     string      `json:"batch_id"`
	Exchange    string      `json:"exchange"`
	Trades      []TradeTick `json:"trades"`
	RecordCount int         `json:"record_count"`
	Timestamp   time.Time   `json:"timestamp"`
	ProcessedAt time.Time   `json:"processed_at"`
}
