package writer

import (
	"strings"
	"testing"
	"time"

	appconfig "tradeflow/config"
	"tradeflow/logger"
	"tradeflow/models"
)

func TestAddBatchAppendsTrades(t *testing.T) {
	w := &TradeWriter{
		log: logger.GetLogger(),
	}
	batch := models.BatchTradeMessage{
		Exchange:    models.SourceOKEx,
		Trades:      []models.TradeTick{{Source: models.SourceOKEx, Price: 100}},
		RecordCount: 1,
	}
	w.addBatch(batch)
	w.addBatch(batch)
	if len(w.buffer) != 2 {
		t.Fatalf("expected 2 buffered trades, got %d", len(w.buffer))
	}
}

func TestGenerateS3Key(t *testing.T) {
	w := &TradeWriter{
		config: &appconfig.Config{
			Storage: appconfig.StorageConfig{
				S3: appconfig.S3Config{Prefix: "market-data"},
			},
		},
		log: logger.GetLogger(),
	}
	ts := time.Date(2020, 6, 26, 15, 4, 5, 0, time.UTC)
	key := w.generateS3Key(ts)

	if !strings.HasPrefix(key, "market-data/exchange=OKEx/date=2020-06-26/hour=15/trades_20200626150405_") {
		t.Fatalf("unexpected key layout: %s", key)
	}
	if !strings.HasSuffix(key, ".parquet") {
		t.Fatalf("expected parquet suffix: %s", key)
	}
}

func TestCreateParquetFile(t *testing.T) {
	w := &TradeWriter{log: logger.GetLogger()}
	trades := []models.TradeTick{
		{Source: models.SourceOKEx, TimestampMs: 1577836800000, Price: 100, Size: 2, Side: models.SideBuy},
		{Source: models.SourceOKEx, TimestampMs: 1577836800100, Price: 101, Size: 1, Side: models.SideSell},
	}
	data, err := w.createParquetFile(trades)
	if err != nil {
		t.Fatalf("create parquet file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty parquet payload")
	}
	// Parquet files start and end with the PAR1 magic bytes.
	if string(data[:4]) != "PAR1" || string(data[len(data)-4:]) != "PAR1" {
		t.Fatalf("payload is not a parquet file")
	}
}
