package okex

import (
	"bytes"
	"compress/flate"
	"encoding/json"
	"io"

	"github.com/gorilla/websocket"

	"tradeflow/models"
)

// inflate decompresses a raw-DEFLATE payload.
func inflate(data []byte) ([]byte, error) {
	reader := flate.NewReader(bytes.NewReader(data))
	defer reader.Close()
	return io.ReadAll(reader)
}

// decodeFrame converts one wire frame into a trade envelope. Text frames
// carry plain JSON, binary frames carry raw-DEFLATE compressed JSON; the
// payload type decides which, there is no content sniffing. Decompression or
// parse failures and messages without a non-empty data list all yield
// ok=false: the frame holds no usable trade message and is dropped.
func decodeFrame(messageType int, payload []byte) (*models.TradeEnvelope, bool) {
	if messageType == websocket.BinaryMessage {
		decoded, err := inflate(payload)
		if err != nil {
			return nil, false
		}
		payload = decoded
	}

	var env models.TradeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, false
	}
	if len(env.Data) == 0 {
		return nil, false
	}
	return &env, true
}
