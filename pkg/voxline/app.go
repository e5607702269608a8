package voxline

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/tradeup-ai/voxline/pkg/audio"
	"github.com/tradeup-ai/voxline/pkg/capabilities"
	"github.com/tradeup-ai/voxline/pkg/logging"
	"github.com/tradeup-ai/voxline/pkg/metrics"
	"github.com/tradeup-ai/voxline/pkg/realtime"
	"github.com/tradeup-ai/voxline/pkg/session"
	"github.com/tradeup-ai/voxline/pkg/tools"
	"github.com/tradeup-ai/voxline/pkg/turnlog"
)

// App assembles the long-lived collaborators shared by every session:
// the capability client, the turn log shipper, the bootstrap client,
// the diagnostics observer, and the single-session manager.
type App struct {
	cfg       Config
	logger    *slog.Logger
	caps      *capabilities.Client
	policy    capabilities.SearchPolicy
	shipper   *turnlog.Shipper
	bootstrap *session.BootstrapClient
	manager   *session.Manager
	observer  metrics.Observer
	asyncObs  *metrics.AsyncObserver
	metricsW  io.Closer
}

func NewApp(cfg Config) *App {
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	a := &App{
		cfg:    cfg,
		logger: logger,
		caps: capabilities.NewClient(capabilities.Config{
			BaseURL:          cfg.Capabilities.BaseURL,
			APIKey:           cfg.Capabilities.APIKey,
			Timeout:          cfg.Capabilities.Timeout(),
			BreakerThreshold: cfg.Capabilities.BreakerThreshold,
			BreakerCooldown:  cfg.Capabilities.BreakerCooldown(),
		}, logger),
		policy: capabilities.SearchPolicy{
			MinUsefulChars: cfg.Search.MinUsefulChars,
			NoHitPhrases:   cfg.Search.NoHitPhrases,
		},
		bootstrap: session.NewBootstrapClient(cfg.Bootstrap.URL, session.BootstrapOptions{
			MaxRetries: cfg.Bootstrap.MaxRetries,
			Backoff:    cfg.Bootstrap.Backoff(),
			Timeout:    cfg.Bootstrap.Timeout(),
		}, logger),
		manager:  session.NewManager(),
		observer: metrics.NoopObserver{},
	}

	if cfg.Observability.MetricsFile != "" {
		f, err := os.OpenFile(cfg.Observability.MetricsFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("metrics file unavailable", slog.String("error", err.Error()))
		} else {
			a.metricsW = f
			a.asyncObs = metrics.NewAsyncObserver(metrics.NewJSONLObserver(f), 256)
			a.observer = a.asyncObs
		}
	}

	shipper := turnlog.NewShipper(cfg.TurnLog.URL, turnlog.Options{
		BufferSize: cfg.TurnLog.BufferSize,
		Timeout:    cfg.TurnLog.Timeout(),
	}, logger)
	shipper.SetObserver(a.observer)
	a.shipper = shipper
	return a
}

func (a *App) Logger() *slog.Logger       { return a.logger }
func (a *App) Manager() *session.Manager  { return a.manager }
func (a *App) Observer() metrics.Observer { return a.observer }

// StartSession bootstraps one conversation and makes it the active
// session, stopping any previous one first.
func (a *App) StartSession(ctx context.Context, sessionID string, src audio.Source, sink audio.Sink, hooks session.Hooks) (*session.Session, error) {
	boot, err := a.bootstrap.Fetch(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	client := realtime.NewClient(realtime.Config{
		Endpoint:     boot.Endpoint,
		Model:        boot.Model,
		ClientSecret: boot.ClientSecret,
	})

	recordDir := ""
	if a.cfg.Observability.RecordAudio {
		recordDir = a.cfg.Observability.ArtifactsDir
	}

	s := session.New(session.Params{
		ID:     boot.SessionID,
		UserID: boot.UserID,
		Client: client,
		Source: src,
		Sink:   sink,
		Capture: audio.CaptureConfig{
			SampleRate:       a.cfg.Audio.SampleRate,
			Channels:         a.cfg.Audio.Channels,
			FrameDuration:    a.cfg.Audio.FrameDuration(),
			EchoCancellation: a.cfg.Audio.EchoCancellation,
			NoiseSuppression: a.cfg.Audio.NoiseSuppression,
		},
		Registry: capabilities.NewRegistry(a.caps, a.policy, boot.SessionID),
		Dispatch: tools.Options{
			Concurrency: a.cfg.Tools.Concurrency,
			QueueSize:   a.cfg.Tools.QueueSize,
		},
		Shipper:       a.shipper,
		Observer:      a.observer,
		Hooks:         hooks,
		Logger:        a.logger,
		SessionConfig: boot.Session,
		RecordDir:     recordDir,
	})

	if err := a.manager.Start(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Close stops the active session and flushes the shared collaborators.
func (a *App) Close() {
	a.manager.Stop()
	a.shipper.Close()
	if a.asyncObs != nil {
		a.asyncObs.Close()
	}
	if a.metricsW != nil {
		_ = a.metricsW.Close()
	}
}
