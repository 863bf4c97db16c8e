package processor

import (
	"fmt"
	"strconv"
	"time"

	"tradeflow/models"
)

// NormalizeTrade converts one raw trade entry into the canonical record. It
// is a pure function of the contract-value map and the entry itself.
//
// Derivative quantities arrive as contract counts; when the instrument has a
// known contract value the size becomes (qty × contractValue) / price, the
// underlying-asset equivalent. Instruments without a specs entry, including
// derivatives whose catalog data is stale, fall back to the raw quantity.
func NormalizeTrade(specs map[string]float64, raw models.OkexTrade) (models.TradeTick, error) {
	price, err := strconv.ParseFloat(raw.Price, 64)
	if err != nil {
		return models.TradeTick{}, fmt.Errorf("parse price %q: %w", raw.Price, err)
	}
	if price <= 0 {
		return models.TradeTick{}, fmt.Errorf("non-positive price %q", raw.Price)
	}

	qtyStr := raw.Size
	if qtyStr == "" {
		qtyStr = raw.Qty
	}
	qty, err := strconv.ParseFloat(qtyStr, 64)
	if err != nil {
		return models.TradeTick{}, fmt.Errorf("parse quantity %q: %w", qtyStr, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return models.TradeTick{}, fmt.Errorf("parse timestamp %q: %w", raw.Timestamp, err)
	}

	side := models.SideSell
	if raw.Side == "buy" {
		side = models.SideBuy
	}

	size := qty
	if contractVal, ok := specs[raw.InstrumentID]; ok {
		size = (qty * contractVal) / price
	}

	return models.TradeTick{
		Source:      models.SourceOKEx,
		TimestampMs: ts.UnixMilli(),
		Price:       price,
		Size:        size,
		Side:        side,
	}, nil
}
