package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tradeflow/config"
	"tradeflow/internal/catalog"
	tradechan "tradeflow/internal/channel/trade"
	"tradeflow/logger"
	"tradeflow/processor"
	"tradeflow/reader/okex"
	"tradeflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Tradeflow.Name,
		"version": cfg.Tradeflow.Version,
	}).Info("starting tradeflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.InitCloudWatch(cfg.Storage.S3.Region, "")
		logger.StartReport(ctx, log, 30*time.Second)
	}

	channels := tradechan.NewChannels(cfg.Channels.RawBuffer, cfg.Channels.NormBuffer)
	defer channels.Close()

	store := catalog.NewStore(cfg.Catalog.SnapshotPath)
	fetcher := catalog.NewFetcher(cfg)

	cat, err := store.Load()
	if err != nil {
		log.WithError(err).Warn("failed to load catalog snapshot")
	}
	if cat == nil {
		cat, err = fetcher.Fetch(ctx)
		if err != nil {
			log.WithError(err).Error("failed to fetch product catalog")
			os.Exit(1)
		}
		if err := store.Save(cat); err != nil {
			log.WithError(err).Warn("failed to persist catalog snapshot")
		}
	}

	classifier := catalog.NewClassifier(cat)

	subs := make([]okex.Subscription, 0, len(cfg.Source.Okex.Pairs))
	for _, pair := range cfg.Source.Okex.Pairs {
		instID, ok := classifier.Resolve(pair)
		if !ok {
			log.WithComponent("main").WithFields(logger.Fields{"pair": pair}).Warn("pair not found in catalog, skipping")
			continue
		}
		subs = append(subs, okex.Subscription{
			InstrumentID: instID,
			Type:         classifier.TypeOf(instID),
		})
	}
	if len(subs) == 0 {
		log.Error("no configured pair resolved to an instrument")
		os.Exit(1)
	}

	feed := okex.NewFeed(cfg, channels, subs)
	dispatcher := processor.NewTradeDispatcher(cfg, classifier, channels)

	var tradeWriter *writer.TradeWriter
	if cfg.Storage.S3.Enabled {
		tradeWriter, err = writer.NewTradeWriter(cfg, channels.Norm)
		if err != nil {
			log.WithError(err).Error("failed to create trade writer")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("S3 storage disabled; skipping trade writer")
	}

	if err := dispatcher.Start(ctx); err != nil {
		log.WithError(err).Error("failed to start trade dispatcher")
		os.Exit(1)
	}

	if tradeWriter != nil {
		if err := tradeWriter.Start(ctx); err != nil {
			log.WithError(err).Error("failed to start trade writer")
			os.Exit(1)
		}
	}

	if err := feed.Open(ctx); err != nil {
		log.WithError(err).Error("failed to open trade feed")
		os.Exit(1)
	}

	if cfg.Catalog.RefreshInterval > 0 {
		go fetcher.Run(ctx, classifier, store)
	}

	go func() {
		for evt := range feed.Events() {
			entry := log.WithComponent("main").WithFields(logger.Fields{"event": string(evt.Kind)})
			if evt.Err != nil {
				entry.WithError(evt.Err).Warn("trade feed event")
				continue
			}
			entry.Info("trade feed event")
		}
	}()

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")

	// Cancel first so the dispatcher drops its pending micro-batch before
	// the socket goes down; nothing may be emitted after disconnect.
	cancel()

	log.Info("closing trade feed")
	if err := feed.Close(); err != nil {
		log.WithError(err).Warn("trade feed close failed")
	}

	log.Info("stopping trade dispatcher")
	dispatcher.Stop()

	if tradeWriter != nil {
		log.Info("stopping trade writer")
		tradeWriter.Stop()
	}

	log.Info("tradeflow shutdown completed")
}
