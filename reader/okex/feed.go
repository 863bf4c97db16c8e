package okex

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	appconfig "tradeflow/config"
	tradechan "tradeflow/internal/channel/trade"
	"tradeflow/logger"
	"tradeflow/models"
)

// Lifecycle is the contract between a feed and the framework that drives it:
// the framework calls Open once and Close on teardown, the feed never
// manages shared framework state itself.
type Lifecycle interface {
	Open(ctx context.Context) error
	Close() error
}

type EventKind string

const (
	EventOpen  EventKind = "open"
	EventClose EventKind = "close"
	EventError EventKind = "error"
)

// FeedEvent is an opaque lifecycle notification passed up to the framework.
type FeedEvent struct {
	Kind EventKind
	Err  error
}

// Subscription pairs a resolved instrument id with its market type, which
// selects the trade channel to subscribe on.
type Subscription struct {
	InstrumentID string
	Type         models.InstrumentType
}

// Feed subscribes to trade streams over the public websocket and forwards
// every decoded frame into the raw trade channel. A literal "ping" keepalive
// is sent on a fixed interval; the connection is re-established until the
// feed is closed.
type Feed struct {
	config   *appconfig.Config
	channels *tradechan.Channels
	subs     []Subscription
	ctx      context.Context
	cancel   context.CancelFunc
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	running  bool
	log      *logger.Log
	events   chan FeedEvent
}

var _ Lifecycle = (*Feed)(nil)

func NewFeed(cfg *appconfig.Config, ch *tradechan.Channels, subs []Subscription) *Feed {
	return &Feed{
		config:   cfg,
		channels: ch,
		subs:     subs,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		events:   make(chan FeedEvent, 16),
	}
}

// Events returns the lifecycle event channel. Events are dropped, not
// blocked on, when the consumer lags.
func (f *Feed) Events() <-chan FeedEvent {
	return f.events
}

// Open starts the websocket stream. It returns an error when the feed is
// already running or has nothing to subscribe to.
func (f *Feed) Open(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return fmt.Errorf("okex trade feed already running")
	}
	if len(f.subs) == 0 {
		f.mu.Unlock()
		return fmt.Errorf("okex trade feed has no subscriptions")
	}
	f.running = true
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.mu.Unlock()

	log := f.log.WithComponent("okex_trade_feed").WithFields(logger.Fields{"operation": "Open"})
	log.WithFields(logger.Fields{"subscriptions": len(f.subs)}).Info("starting okex trade feed")

	f.wg.Add(1)
	go f.stream()

	log.Info("okex trade feed started successfully")
	return nil
}

// Close terminates the stream and waits for the reader goroutine. Any timers
// owned downstream stop emitting once the raw channel drains, so no trade is
// produced after Close returns.
func (f *Feed) Close() error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	cancel := f.cancel
	f.mu.Unlock()

	f.log.WithComponent("okex_trade_feed").Info("stopping okex trade feed")
	if cancel != nil {
		cancel()
	}
	f.wg.Wait()
	f.emit(FeedEvent{Kind: EventClose})
	f.log.WithComponent("okex_trade_feed").Info("okex trade feed stopped")
	return nil
}

// stream handles the websocket lifecycle: dial, subscribe, keepalive, read
// loop and reconnection.
func (f *Feed) stream() {
	defer f.wg.Done()
	log := f.log.WithComponent("okex_trade_feed").WithFields(logger.Fields{"worker": "trade_stream"})

	delay := f.config.Reader.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	for {
		if f.ctx.Err() != nil {
			return
		}

		dialer := websocket.Dialer{HandshakeTimeout: f.config.Reader.Timeout}
		conn, _, err := dialer.DialContext(f.ctx, f.config.Source.Okex.WebsocketURL, nil)
		if err != nil {
			log.WithError(err).Warn("failed to connect websocket, retrying")
			f.emit(FeedEvent{Kind: EventError, Err: fmt.Errorf("okex trade feed connect failed: %w", err)})
			select {
			case <-time.After(delay):
				continue
			case <-f.ctx.Done():
				return
			}
		}

		f.emit(FeedEvent{Kind: EventOpen})

		if err := conn.WriteJSON(subscribeRequest(f.subs)); err != nil {
			log.WithError(err).Warn("failed to subscribe, retrying")
			f.emit(FeedEvent{Kind: EventError, Err: fmt.Errorf("okex trade feed subscribe failed: %w", err)})
			conn.Close()
			select {
			case <-time.After(delay):
				continue
			case <-f.ctx.Done():
				return
			}
		}

		// The keepalive goroutine is the only writer after the subscribe
		// message; the read loop never writes, so no write lock is needed.
		pingTicker := time.NewTicker(f.config.Reader.PingInterval)
		done := make(chan struct{})
		go func() {
			defer pingTicker.Stop()
			for {
				select {
				case <-done:
					return
				case <-f.ctx.Done():
					return
				case <-pingTicker.C:
					conn.WriteMessage(websocket.TextMessage, []byte("ping"))
				}
			}
		}()

		f.readLoop(conn, log)
		close(done)
		conn.Close()

		if f.ctx.Err() != nil {
			return
		}
		select {
		case <-time.After(delay):
		case <-f.ctx.Done():
			return
		}
	}
}

// readLoop reads frames until the connection breaks or the feed is closed.
func (f *Feed) readLoop(conn *websocket.Conn, log *logger.Entry) {
	for {
		if f.ctx.Err() != nil {
			return
		}
		messageType, msg, err := conn.ReadMessage()
		if err != nil {
			if f.ctx.Err() == nil {
				log.WithError(err).Warn("websocket read error, reconnecting")
				f.emit(FeedEvent{Kind: EventError, Err: fmt.Errorf("okex trade feed read failed: %w", err)})
			}
			return
		}
		f.handleFrame(messageType, msg)
	}
}

// handleFrame decodes one wire frame and forwards it as a raw trade message.
// Frames without a usable trade message (keepalive pongs, subscribe acks,
// corrupted payloads) are absorbed here and reported as false.
func (f *Feed) handleFrame(messageType int, msg []byte) bool {
	if messageType == websocket.TextMessage && string(msg) == "pong" {
		return false
	}

	env, ok := decodeFrame(messageType, msg)
	if !ok {
		f.log.WithComponent("okex_trade_feed").Debug("frame without trade data, skipping")
		return false
	}

	payload, err := json.Marshal(env)
	if err != nil {
		f.log.WithComponent("okex_trade_feed").WithError(err).Warn("failed to marshal envelope")
		return false
	}

	raw := models.RawTradeMessage{
		Exchange:  models.SourceOKEx,
		Table:     env.Table,
		Data:      payload,
		Timestamp: time.Now(),
	}
	if f.channels.SendRaw(f.ctx, raw) {
		logger.IncrementFrameRead(len(payload))
		return true
	}
	if f.ctx.Err() != nil {
		return false
	}
	f.log.WithComponent("okex_trade_feed").Warn("raw trade channel full, dropping frame")
	return false
}

// emit pushes a lifecycle event without blocking.
func (f *Feed) emit(evt FeedEvent) {
	select {
	case f.events <- evt:
	default:
	}
}

type subscribeMessage struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// subscribeRequest builds the trade subscription for every instrument, one
// "<type>/trade:<instId>" argument each.
func subscribeRequest(subs []Subscription) subscribeMessage {
	args := make([]string, 0, len(subs))
	for _, sub := range subs {
		args = append(args, fmt.Sprintf("%s/trade:%s", sub.Type, sub.InstrumentID))
	}
	return subscribeMessage{Op: "subscribe", Args: args}
}
