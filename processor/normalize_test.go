package processor

import (
	"testing"

	"tradeflow/models"
)

func TestNormalizeSpotTrade(t *testing.T) {
	raw := models.OkexTrade{
		InstrumentID: "BTC-USDT",
		Price:        "100",
		Size:         "2",
		Side:         "buy",
		Timestamp:    "2020-01-01T00:00:00.000Z",
	}

	tick, err := NormalizeTrade(nil, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if tick.Source != models.SourceOKEx {
		t.Errorf("source: %s", tick.Source)
	}
	if tick.Price != 100 || tick.Size != 2 {
		t.Errorf("price/size: %v/%v", tick.Price, tick.Size)
	}
	if tick.Side != models.SideBuy {
		t.Errorf("side: %v", tick.Side)
	}
	if tick.TimestampMs != 1577836800000 {
		t.Errorf("timestamp: %d", tick.TimestampMs)
	}
}

func TestNormalizeContractValueConversion(t *testing.T) {
	specs := map[string]float64{"BTC-USD-SWAP": 100}
	raw := models.OkexTrade{
		InstrumentID: "BTC-USD-SWAP",
		Price:        "50",
		Qty:          "10",
		Side:         "sell",
		Timestamp:    "2020-01-01T00:00:00.000Z",
	}

	tick, err := NormalizeTrade(specs, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	// 10 contracts × 100 contract value / 50 price = 20 base units
	if tick.Size != 20 {
		t.Errorf("size: %v", tick.Size)
	}
	if tick.Side != models.SideSell {
		t.Errorf("side: %v", tick.Side)
	}
}

func TestNormalizeMissingSpecFallsBack(t *testing.T) {
	// Stale catalog: a derivative without a contract value keeps its raw
	// quantity rather than failing.
	raw := models.OkexTrade{
		InstrumentID: "BTC-USD-SWAP",
		Qty:          "10",
		Price:        "50",
		Side:         "buy",
		Timestamp:    "2020-01-01T00:00:00.000Z",
	}
	tick, err := NormalizeTrade(map[string]float64{}, raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if tick.Size != 10 {
		t.Errorf("size: %v", tick.Size)
	}
}

func TestNormalizePure(t *testing.T) {
	specs := map[string]float64{"BTC-USD-SWAP": 100}
	raw := models.OkexTrade{
		InstrumentID: "BTC-USD-SWAP",
		Price:        "50",
		Qty:          "10",
		Side:         "buy",
		Timestamp:    "2020-01-01T00:00:00.000Z",
	}
	first, err1 := NormalizeTrade(specs, raw)
	second, err2 := NormalizeTrade(specs, raw)
	if err1 != nil || err2 != nil {
		t.Fatalf("normalize: %v, %v", err1, err2)
	}
	if first != second {
		t.Fatalf("normalization is not pure: %+v vs %+v", first, second)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  models.OkexTrade
	}{
		{"bad price", models.OkexTrade{Price: "x", Size: "1", Side: "buy", Timestamp: "2020-01-01T00:00:00.000Z"}},
		{"zero price", models.OkexTrade{Price: "0", Size: "1", Side: "buy", Timestamp: "2020-01-01T00:00:00.000Z"}},
		{"bad quantity", models.OkexTrade{Price: "1", Size: "x", Side: "buy", Timestamp: "2020-01-01T00:00:00.000Z"}},
		{"missing quantity", models.OkexTrade{Price: "1", Side: "buy", Timestamp: "2020-01-01T00:00:00.000Z"}},
		{"bad timestamp", models.OkexTrade{Price: "1", Size: "1", Side: "buy", Timestamp: "yesterday"}},
	}
	for _, tt := range tests {
		if _, err := NormalizeTrade(nil, tt.raw); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
