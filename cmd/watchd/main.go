package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/NordCoder/Watchtower/internal/config/watchd"
	"github.com/NordCoder/Watchtower/internal/domain/watch"
	"github.com/NordCoder/Watchtower/internal/notify"
	"github.com/NordCoder/Watchtower/internal/obs"
	"github.com/NordCoder/Watchtower/internal/probe"
	kafkaRepo "github.com/NordCoder/Watchtower/internal/repository/kafka"
	"github.com/NordCoder/Watchtower/internal/repository/snapshot"
	"github.com/NordCoder/Watchtower/internal/services/engine"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config/watchd.yaml", "path to config file")
	flag.Parse()

	// init
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	zap.ReplaceGlobals(l)
	l.Info("starting watchd",
		zap.String("snapshot_driver", cfg.Snapshot.Driver),
		zap.String("notify_driver", cfg.Notify.Driver),
		zap.String("metrics_addr", cfg.Engine.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// snapshot store
	var (
		snap   watch.SnapshotStore
		health func(context.Context) error
	)
	switch cfg.Snapshot.Driver {
	case "postgres":
		pg, err := snapshot.NewPostgres(ctx, cfg.Snapshot.DB, l)
		if err != nil {
			l.Fatal("snapshot store", zap.Error(err))
		}
		snap = pg
		health = pg.Ping
	default:
		snap = snapshot.NewFile(cfg.Snapshot.Path, l)
	}
	defer func() { _ = snap.Close() }()

	// notifier
	var notifier watch.Notifier
	switch cfg.Notify.Driver {
	case "telegram":
		notifier, err = notify.NewTelegram(cfg.Notify.Telegram.Token, l)
		if err != nil {
			l.Fatal("notifier", zap.Error(err))
		}
	case "kafka":
		prod := kafkaRepo.NewProducer(cfg.Notify.Kafka.Brokers, cfg.Notify.Kafka.Topic).WithLogger(l)
		defer func() { _ = prod.Close() }()
		notifier = kafkaRepo.NewTransitionEventsKafka(prod)
	default:
		notifier = notify.NewLog(l)
	}

	// probers
	httpc := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	probers := map[watch.Kind]watch.Prober{
		watch.KindWebsite: probe.NewWebsite(httpc, cfg.Probe.UserAgent, l),
		watch.KindVideo:   probe.NewYouTube(httpc, cfg.Probe.UserAgent, l),
	}
	if cfg.Probe.Twitch.ClientID != "" {
		probers[watch.KindStream] = probe.NewTwitch(httpc, probe.TwitchConfig{
			ClientID:     cfg.Probe.Twitch.ClientID,
			ClientSecret: cfg.Probe.Twitch.ClientSecret,
		}, l)
	}

	// run metrics server
	ms := obs.BootstrapMetricsServer(cfg.Engine.MetricsAddr, health, l)

	// wiring
	eng := engine.New(engine.Options{
		Log:           l,
		Snapshot:      snap,
		Notifier:      notifier,
		Probers:       probers,
		ProbeTimeout:  cfg.Engine.ProbeTimeout,
		FlushInterval: cfg.Engine.FlushInterval,
		MinInterval:   cfg.Engine.MinInterval,
		MaxInterval:   cfg.Engine.MaxInterval,
	})

	// run
	if err := eng.Start(ctx); err != nil {
		l.Fatal("engine start", zap.Error(err))
	}
	l.Info("watchd started")

	<-ctx.Done()

	// graceful shutdown
	eng.Stop()
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
