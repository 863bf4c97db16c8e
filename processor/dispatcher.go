package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	appconfig "tradeflow/config"
	"tradeflow/internal/catalog"
	tradechan "tradeflow/internal/channel/trade"
	"tradeflow/logger"
	"tradeflow/models"
)

// TradeDispatcher normalizes decoded trade frames and coalesces single-trade
// frames into micro-batches before forwarding downstream. Frames already
// holding several trades pass through untouched: the exchange grouped them,
// re-batching would only add latency.
//
// All state (pending list, batching timer) is owned by the single run loop
// goroutine, so frame handling and timer firing never overlap.
type TradeDispatcher struct {
	config     *appconfig.Config
	classifier *catalog.Classifier
	channels   *tradechan.Channels
	ctx        context.Context
	wg         *sync.WaitGroup
	mu         sync.RWMutex
	running    bool
	log        *logger.Log

	window     time.Duration
	pending    []models.TradeTick
	timer      *time.Timer
	timerArmed bool
}

func NewTradeDispatcher(cfg *appconfig.Config, classifier *catalog.Classifier, ch *tradechan.Channels) *TradeDispatcher {
	window := cfg.Dispatcher.BatchWindow
	if window <= 0 {
		window = 30 * time.Millisecond
	}
	return &TradeDispatcher{
		config:     cfg,
		classifier: classifier,
		channels:   ch,
		wg:         &sync.WaitGroup{},
		log:        logger.GetLogger(),
		window:     window,
	}
}

// Start begins processing frames from the raw trade channel.
func (p *TradeDispatcher) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("trade dispatcher already running")
	}
	p.running = true
	p.ctx = ctx
	p.mu.Unlock()

	log := p.log.WithComponent("trade_dispatcher").WithFields(logger.Fields{"operation": "Start"})
	log.WithFields(logger.Fields{"batch_window": p.window.String()}).Info("starting trade dispatcher")

	p.wg.Add(1)
	go p.run()

	p.wg.Add(1)
	go p.metricsReporter(ctx)

	log.Info("trade dispatcher started successfully")
	return nil
}

// Stop waits for the run loop to drain. Pending trades are dropped, not
// emitted: teardown must not produce post-disconnect emissions.
func (p *TradeDispatcher) Stop() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.log.WithComponent("trade_dispatcher").Info("stopping trade dispatcher")
	p.wg.Wait()
	p.log.WithComponent("trade_dispatcher").Info("trade dispatcher stopped")
}

// run is the single event loop serializing frame handling and timer firing.
func (p *TradeDispatcher) run() {
	defer p.wg.Done()

	timer := time.NewTimer(p.window)
	if !timer.Stop() {
		<-timer.C
	}
	p.timer = timer

	for {
		select {
		case <-p.ctx.Done():
			p.cancelTimer()
			p.pending = nil
			return
		case raw, ok := <-p.channels.Raw:
			if !ok {
				p.cancelTimer()
				p.pending = nil
				return
			}
			p.handleMessage(raw)
		case <-p.timer.C:
			p.timerArmed = false
			p.flush()
		}
	}
}

// handleMessage normalizes every trade in one frame and applies the batching
// policy to the result.
func (p *TradeDispatcher) handleMessage(raw models.RawTradeMessage) {
	log := p.log.WithComponent("trade_dispatcher").WithFields(logger.Fields{"exchange": raw.Exchange})

	var env models.TradeEnvelope
	if err := json.Unmarshal(raw.Data, &env); err != nil {
		log.WithError(err).Warn("failed to unmarshal trade envelope")
		return
	}

	specs := p.classifier.Specs()
	trades := make([]models.TradeTick, 0, len(env.Data))
	for _, entry := range env.Data {
		tick, err := NormalizeTrade(specs, entry)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"instrument_id": entry.InstrumentID}).Warn("skipping unparsable trade")
			continue
		}
		trades = append(trades, tick)
	}

	switch {
	case len(trades) > 1:
		// A burst the exchange already grouped: release whatever single
		// trade is waiting, then pass the burst through as-is.
		p.flush()
		p.emit(trades)
	case len(trades) == 1:
		tick := trades[0]
		if len(p.pending) > 0 && p.pending[len(p.pending)-1].TimestampMs != tick.TimestampMs {
			p.flush()
		}
		p.pending = append(p.pending, tick)
		p.resetTimer()
	}
}

// flush emits the pending micro-batch, if any, and cancels the window timer.
// Flushing an empty pending list is a no-op.
func (p *TradeDispatcher) flush() {
	p.cancelTimer()
	if len(p.pending) == 0 {
		return
	}
	trades := p.pending
	p.pending = nil
	p.emit(trades)
}

func (p *TradeDispatcher) emit(trades []models.TradeTick) {
	batch := models.BatchTradeMessage{
		BatchID:     uuid.New().String(),
		Exchange:    models.SourceOKEx,
		Trades:      trades,
		RecordCount: len(trades),
		Timestamp:   time.UnixMilli(trades[len(trades)-1].TimestampMs),
		ProcessedAt: time.Now(),
	}
	if p.channels.SendNorm(p.ctx, batch) {
		logger.IncrementBatchEmitted(len(trades))
		return
	}
	if p.ctx.Err() != nil {
		return
	}
	p.log.WithComponent("trade_dispatcher").Warn("norm trade channel full, dropping batch")
}

// cancelTimer stops the window timer and drains a pending fire so a stale
// tick can never flush a batch it no longer owns.
func (p *TradeDispatcher) cancelTimer() {
	if !p.timerArmed {
		return
	}
	if !p.timer.Stop() {
		select {
		case <-p.timer.C:
		default:
		}
	}
	p.timerArmed = false
}

func (p *TradeDispatcher) resetTimer() {
	p.cancelTimer()
	p.timer.Reset(p.window)
	p.timerArmed = true
}

func (p *TradeDispatcher) metricsReporter(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.mu.RLock()
			running := p.running
			p.mu.RUnlock()
			if !running {
				return
			}
			entry := p.log.WithComponent("trade_dispatcher")
			entry.WithFields(logger.Fields{
				"raw_channel_len":  len(p.channels.Raw),
				"raw_channel_cap":  cap(p.channels.Raw),
				"norm_channel_len": len(p.channels.Norm),
				"norm_channel_cap": cap(p.channels.Norm),
			}).Info("trade dispatcher channel sizes")
			entry.LogMetric("trade_dispatcher", "raw_channel_depth", len(p.channels.Raw), "gauge", nil)
			entry.LogMetric("trade_dispatcher", "norm_channel_depth", len(p.channels.Norm), "gauge", nil)
		}
	}
}
