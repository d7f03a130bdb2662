package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"autopvp/internal/config"
	"autopvp/internal/denylist"
	"autopvp/internal/envelope"
	"autopvp/internal/protocol"
	"autopvp/internal/session"
	"autopvp/internal/transport"
)

const dialTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	logger, closeLog, err := newLogger(cfg.LogLevel, cfg.LogFile, time.Now())
	if err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	logger.WithFields(logrus.Fields{"uid": cfg.UID, "host": cfg.Host}).Info("Starting autopvp...")

	codec, err := newCodec(cfg)
	if err != nil {
		logger.Fatalf("Failed to set up the envelope codec: %v", err)
	}

	deny, err := denylist.Open(cfg.DBPath)
	if err != nil {
		logger.Fatalf("Failed to open the deny-list: %v", err)
	}
	defer deny.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, uid := range cfg.Banned {
		if _, err := deny.Add(ctx, uid, "configured"); err != nil {
			logger.WithError(err).Warnf("Failed to ban %s", uid)
		}
	}

	sess := session.New(session.Config{
		UID:     cfg.UID,
		Version: cfg.Version,
		Bounds:  cfg.Bounds(),
		Room:    protocol.DefaultRoomConfig(),
		WarmUp:  cfg.WarmUp,
	}, session.Deps{
		Codec:    codec,
		DenyList: deny,
		Quotas:   session.NewQuotaBook(cfg.NormalMax, cfg.VIPMax),
		Log:      logger,
	})

	go runHourly(ctx, sess.ResetQuotas)

	sup := &Supervisor{
		Dial:    dialer(cfg, logger),
		Session: sess,
		Delays: Delays{
			Restart: cfg.RestartDelay,
			Network: cfg.NetworkRetryDelay,
			Crash:   cfg.CrashRetryDelay,
		},
		Log: logger,
	}
	sup.Run(ctx)

	st := sess.Stats()
	logger.WithFields(logrus.Fields{
		"connections": st.Connections,
		"battles":     st.Battles,
		"wins":        st.Wins,
		"losses":      st.Losses,
		"kicks":       st.Kicks,
		"level":       sess.Level(),
	}).Info("autopvp stopped")
}

// newCodec picks the encrypted envelope when a key is configured
func newCodec(cfg *config.Config) (envelope.Codec, error) {
	if cfg.Key == "" {
		return envelope.Plain{}, nil
	}
	var opts []envelope.Option
	if !cfg.VerifyDigest {
		opts = append(opts, envelope.WithLenientDigest())
	}
	codec, err := envelope.NewAES(cfg.Key, cfg.Salt, opts...)
	if err != nil {
		return nil, err
	}
	return codec, nil
}

func dialer(cfg *config.Config, log logrus.FieldLogger) func(context.Context) (link, error) {
	url := transport.Endpoint(cfg.Host, cfg.UID)
	return func(ctx context.Context) (link, error) {
		ctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		conn, err := transport.Dial(ctx, transport.Options{
			URL:       url,
			Header:    transport.Headers(cfg.UID, cfg.Token, cfg.Version, time.Now()),
			Heartbeat: cfg.Heartbeat,
			Log:       log.WithField("uid", cfg.UID),
		})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}
