package models

import (
	"encoding/json"
	"testing"
)

func TestTradeEnvelopeDecodesWireFrame(t *testing.T) {
	frame := `{"table":"spot/trade","data":[{"instrument_id":"BTC-USDT","price":"7163.9","size":"0.016","side":"buy","timestamp":"2020-01-01T00:00:00.000Z"}]}`
	var env TradeEnvelope
	if err := json.Unmarshal([]byte(frame), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Table != "spot/trade" || len(env.Data) != 1 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	trade := env.Data[0]
	if trade.InstrumentID != "BTC-USDT" || trade.Price != "7163.9" || trade.Size != "0.016" ||
		trade.Side != "buy" || trade.Timestamp != "2020-01-01T00:00:00.000Z" {
		t.Fatalf("unexpected trade entry: %+v", trade)
	}
}

func TestInstrumentDecodesDerivativeFields(t *testing.T) {
	payload := `{"instrument_id":"BTC-USD-SWAP","underlying_index":"BTC","quote_currency":"USD","contract_val":"100"}`
	var inst Instrument
	if err := json.Unmarshal([]byte(payload), &inst); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if inst.InstrumentID != "BTC-USD-SWAP" || inst.UnderlyingIndex != "BTC" || inst.ContractVal != "100" {
		t.Fatalf("unexpected instrument: %+v", inst)
	}
}

func TestTradeSideValues(t *testing.T) {
	if SideBuy != 1 || SideSell != 0 {
		t.Fatalf("side encoding changed: buy=%d sell=%d", SideBuy, SideSell)
	}
}
