package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorsFeed       int64
	errorsDispatch   int64
	warnsFeed        int64
	warnsDispatch    int64
	framesRead       int64
	batchesEmitted   int64
	tradesEmitted    int64
	catalogRefreshes int64
	s3Writes         int64
	channels         sync.Map // map[string]*channelStat
)

func recordWarn(component string) {
	if strings.Contains(component, "feed") {
		atomic.AddInt64(&warnsFeed, 1)
	} else if strings.Contains(component, "dispatch") {
		atomic.AddInt64(&warnsDispatch, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "feed") {
		atomic.AddInt64(&errorsFeed, 1)
	} else if strings.Contains(component, "dispatch") {
		atomic.AddInt64(&errorsDispatch, 1)
	}
}

// IncrementFrameRead records one decoded trade frame of the given size.
func IncrementFrameRead(size int) {
	atomic.AddInt64(&framesRead, 1)
	recordChannel("trade_ws", size)
}

// IncrementBatchEmitted records one downstream batch emission holding n trades.
func IncrementBatchEmitted(n int) {
	atomic.AddInt64(&batchesEmitted, 1)
	atomic.AddInt64(&tradesEmitted, int64(n))
	recordChannel("trade_batches", n)
}

// IncrementCatalogRefresh records one wholesale catalog rebuild.
func IncrementCatalogRefresh() {
	atomic.AddInt64(&catalogRefreshes, 1)
}

// IncrementS3Write records one parquet object upload of the given size.
func IncrementS3Write(size int64) {
	atomic.AddInt64(&s3Writes, 1)
	recordChannel("s3_trade_write", int(size))
}

func RecordChannelMessage(name string, size int) {
	recordChannel(name, size)
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

func startReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

// StartReport begins periodic logging of runtime and channel statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	startReport(ctx, log, interval)
}

func logReport(ctx context.Context, log *Log) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*channelStat)
		channelData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	fields := Fields{
		"errors_feed":       atomic.LoadInt64(&errorsFeed),
		"errors_dispatch":   atomic.LoadInt64(&errorsDispatch),
		"warns_feed":        atomic.LoadInt64(&warnsFeed),
		"warns_dispatch":    atomic.LoadInt64(&warnsDispatch),
		"frames_read":       atomic.LoadInt64(&framesRead),
		"batches_emitted":   atomic.LoadInt64(&batchesEmitted),
		"trades_emitted":    atomic.LoadInt64(&tradesEmitted),
		"catalog_refreshes": atomic.LoadInt64(&catalogRefreshes),
		"s3_writes":         atomic.LoadInt64(&s3Writes),
		"goroutines":        runtime.NumGoroutine(),
		"heap_mb":           int64(memStats.HeapAlloc) / 1024 / 1024,
		"channels":          channelData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("FramesRead"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["frames_read"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("BatchesEmitted"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["batches_emitted"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("TradesEmitted"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["trades_emitted"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("CatalogRefreshes"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["catalog_refreshes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("S3Writes"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["s3_writes"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsFeed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_feed"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("ErrorsDispatch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["errors_dispatch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsFeed"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_feed"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("WarnsDispatch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(fields["warns_dispatch"].(int64)))},
		cwtypes.MetricDatum{MetricName: aws.String("HeapMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.HeapAlloc) / 1024 / 1024)},
	)

	for name, stats := range channelData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("ChannelMessages"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["messages"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("ChannelBytes"),
				Unit:       cwtypes.StandardUnitBytes,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["bytes"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
