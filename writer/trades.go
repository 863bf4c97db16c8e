package writer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go/parquet"
	parquetwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "tradeflow/config"
	"tradeflow/logger"
	"tradeflow/models"
)

// ParquetRecord represents the structure of our parquet file
type ParquetRecord struct {
	Source    string  `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	Price     float64 `parquet:"name=price, type=DOUBLE"`
	Size      float64 `parquet:"name=size, type=DOUBLE"`
	Side      int32   `parquet:"name=side, type=INT32"`
}

// TradeWriter drains normalized trade batches, buffers them and flushes the
// accumulated records to S3 as parquet files on a fixed interval.
type TradeWriter struct {
	config      *appconfig.Config
	normCh      <-chan models.BatchTradeMessage
	s3Client    *s3.Client
	ctx         context.Context
	wg          *sync.WaitGroup
	mu          sync.Mutex
	running     bool
	log         *logger.Log
	buffer      []models.TradeTick
	flushTicker *time.Ticker
}

func NewTradeWriter(cfg *appconfig.Config, normCh <-chan models.BatchTradeMessage) (*TradeWriter, error) {
	log := logger.GetLogger()

	ctx := context.Background()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("trade_writer").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	w := &TradeWriter{
		config:   cfg,
		normCh:   normCh,
		s3Client: s3.NewFromConfig(awsCfg),
		wg:       &sync.WaitGroup{},
		log:      log,
	}

	log.WithComponent("trade_writer").WithFields(logger.Fields{
		"bucket": cfg.Storage.S3.Bucket,
		"region": cfg.Storage.S3.Region,
		"prefix": cfg.Storage.S3.Prefix,
	}).Info("trade writer initialized")

	return w, nil
}

func (w *TradeWriter) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("trade writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.buffer = nil
	w.mu.Unlock()

	log := w.log.WithComponent("trade_writer").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting trade writer")

	w.flushTicker = time.NewTicker(w.config.Storage.S3.FlushInterval)

	w.wg.Add(2)
	go w.drainWorker()
	go w.flushWorker()

	log.Info("trade writer started successfully")
	return nil
}

func (w *TradeWriter) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	w.log.WithComponent("trade_writer").Info("stopping trade writer")
	w.wg.Wait()
	w.log.WithComponent("trade_writer").Info("trade writer stopped")
}

func (w *TradeWriter) drainWorker() {
	defer w.wg.Done()

	log := w.log.WithComponent("trade_writer").WithFields(logger.Fields{"worker": "drain"})
	log.Info("starting drain worker")

	for {
		select {
		case <-w.ctx.Done():
			log.Info("drain worker stopped due to context cancellation")
			return
		case batch, ok := <-w.normCh:
			if !ok {
				log.Info("normalized channel closed, drain worker stopping")
				return
			}
			w.addBatch(batch)
		}
	}
}

func (w *TradeWriter) addBatch(batch models.BatchTradeMessage) {
	w.mu.Lock()
	w.buffer = append(w.buffer, batch.Trades...)
	w.mu.Unlock()
}

func (w *TradeWriter) flushWorker() {
	defer w.wg.Done()

	log := w.log.WithComponent("trade_writer").WithFields(logger.Fields{"worker": "flush"})
	log.Info("starting flush worker")

	for {
		select {
		case <-w.ctx.Done():
			w.flushBuffer("shutdown")
			log.Info("flush worker stopped due to context cancellation")
			return
		case <-w.flushTicker.C:
			w.flushBuffer("interval")
		}
	}
}

func (w *TradeWriter) flushBuffer(reason string) {
	w.mu.Lock()
	trades := w.buffer
	w.buffer = nil
	w.mu.Unlock()

	if len(trades) == 0 {
		return
	}

	log := w.log.WithComponent("trade_writer").WithFields(logger.Fields{
		"record_count": len(trades),
		"reason":       reason,
	})
	log.Info("flushing trade buffer")

	key := w.generateS3Key(time.Now().UTC())
	log = log.WithFields(logger.Fields{"s3_key": key})

	data, err := w.createParquetFile(trades)
	if err != nil {
		log.WithError(err).Error("failed to create parquet file")
		return
	}

	if err := w.uploadToS3(key, data); err != nil {
		log.WithError(err).
			WithEnv("S3_BUCKET").
			WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket}).
			Error("failed to upload to S3")
		return
	}

	logger.IncrementS3Write(int64(len(data)))
	log.WithFields(logger.Fields{"file_size": len(data)}).Info("trade buffer flushed to S3")
	logger.LogDataFlowEntry(log, "norm_trades", "s3", len(trades), "trade")
}

func (w *TradeWriter) generateS3Key(ts time.Time) string {
	parts := []string{
		fmt.Sprintf("exchange=%s", models.SourceOKEx),
		fmt.Sprintf("date=%s", ts.Format("2006-01-02")),
		fmt.Sprintf("hour=%02d", ts.Hour()),
		fmt.Sprintf("trades_%s_%s.parquet", ts.Format("20060102150405"), uuid.New().String()),
	}
	if prefix := w.config.Storage.S3.Prefix; prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return filepath.ToSlash(filepath.Join(parts...))
}

func (w *TradeWriter) createParquetFile(trades []models.TradeTick) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := parquetwriter.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, t := range trades {
		record := ParquetRecord{
			Source:    t.Source,
			Timestamp: t.TimestampMs,
			Price:     t.Price,
			Size:      t.Size,
			Side:      int32(t.Side),
		}
		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	return fw.Bytes(), nil
}

func (w *TradeWriter) uploadToS3(key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":      "parquet",
			"tradeflow-version": w.config.Tradeflow.Version,
		},
	}

	// Shutdown flushes must still reach S3 after the run context is cancelled.
	ctx := context.WithoutCancel(w.ctx)
	_, err := w.s3Client.PutObject(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Storage.S3.Bucket, err)
	}
	return nil
}
