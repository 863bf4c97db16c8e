package okex

import (
	"bytes"
	"compress/flate"
	"testing"

	"github.com/gorilla/websocket"
)

const validFrame = `{"data":[{"instrument_id":"BTC-USDT","price":"100","size":"2","side":"buy","timestamp":"2020-01-01T00:00:00.000Z"}]}`

// deflateRaw compresses a payload the way the exchange does for binary frames.
func deflateRaw(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeFrameText(t *testing.T) {
	env, ok := decodeFrame(websocket.TextMessage, []byte(validFrame))
	if !ok {
		t.Fatal("expected message")
	}
	if len(env.Data) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(env.Data))
	}
	trade := env.Data[0]
	if trade.InstrumentID != "BTC-USDT" || trade.Price != "100" || trade.Size != "2" || trade.Side != "buy" {
		t.Fatalf("unexpected trade: %+v", trade)
	}
}

func TestDecodeFrameBinary(t *testing.T) {
	compressed := deflateRaw(t, []byte(validFrame))
	env, ok := decodeFrame(websocket.BinaryMessage, compressed)
	if !ok {
		t.Fatal("expected message")
	}
	if len(env.Data) != 1 || env.Data[0].InstrumentID != "BTC-USDT" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestDecodeFrameCorruptedBinary(t *testing.T) {
	if _, ok := decodeFrame(websocket.BinaryMessage, []byte{0x00, 0x01, 0xff, 0xfe}); ok {
		t.Fatal("corrupted binary frame must yield no message")
	}
}

func TestDecodeFrameMalformedJSON(t *testing.T) {
	if _, ok := decodeFrame(websocket.TextMessage, []byte(`{"data":`)); ok {
		t.Fatal("malformed JSON must yield no message")
	}
}

func TestDecodeFrameEmptyData(t *testing.T) {
	if _, ok := decodeFrame(websocket.TextMessage, []byte(`{"event":"subscribe","data":[]}`)); ok {
		t.Fatal("empty data list must yield no message")
	}
	if _, ok := decodeFrame(websocket.TextMessage, []byte(`{"event":"subscribe"}`)); ok {
		t.Fatal("missing data list must yield no message")
	}
}
