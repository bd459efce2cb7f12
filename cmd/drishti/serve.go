package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/advice"
	"github.com/ayusman/drishti/internal/app"
	"github.com/ayusman/drishti/internal/detector"
	"github.com/ayusman/drishti/internal/notify"
	"github.com/ayusman/drishti/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP monitoring API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: $HTTP_ADDR or :8000)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cooldowns, pruner, closeCooldowns, err := newCooldownStore(ctx)
	if err != nil {
		return err
	}
	defer closeCooldowns()

	sender, err := newSender(ctx)
	if err != nil {
		return err
	}

	gate := notify.NewGate(notify.GateConfig{
		Store:      cooldowns,
		Sender:     sender,
		Recipients: app.TokenRecipients(st),
		Logger:     logger.Named("notify"),
	})

	detCfg := detector.DefaultConfig()
	detCfg.ScriptPath = cfg.MediaPipeScript
	detCfg.Python = cfg.PythonBin

	monitor := app.New(app.Config{
		Store:          st,
		DetectorConfig: detCfg,
		Gate:           gate,
		Cooldowns:      pruner,
		Logger:         logger.Named("app"),
		DetectTimeout:  cfg.DetectTimeout,
		SessionIdleTTL: cfg.SessionIdleTTL,
		Retention:      cfg.LogRetention,
	})
	monitor.Start(ctx)
	defer monitor.Stop()

	srvCfg := server.Config{
		StaticDir:  cfg.StaticDir,
		Store:      st,
		Monitor:    monitor,
		Logger:     logger.Named("http"),
		RatePerSec: cfg.RatePerSec,
		RateBurst:  cfg.RateBurst,
	}
	if srvCfg.StaticDir == "" {
		srvCfg.StaticDir = findWebDir()
	}
	if srvCfg.StaticDir != "" {
		logger.Info("serving static files", zap.String("dir", srvCfg.StaticDir))
	}

	if cfg.GeminiAPIKey != "" {
		gen, err := advice.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		defer gen.Close()
		srvCfg.Advisor = advice.NewAdvisor(gen)
	} else {
		logger.Warn("GEMINI_API_KEY not set, eye-care advice disabled")
	}

	srv := server.New(srvCfg)
	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newCooldownStore shares cooldowns through Redis when REDIS_ADDR is set and
// keeps them in memory otherwise.
func newCooldownStore(ctx context.Context) (notify.CooldownStore, app.CooldownPruner, func(), error) {
	if cfg.RedisAddr == "" {
		mem := notify.NewMemoryStore()
		return mem, mem, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("sharing notification cooldowns through redis", zap.String("addr", cfg.RedisAddr))
	return notify.NewRedisStore(client), nil, func() { client.Close() }, nil
}

// newSender picks FCM, then an external command, then log-only delivery.
func newSender(ctx context.Context) (notify.Sender, error) {
	switch {
	case cfg.FCMCredentialsFile != "" || cfg.FCMProjectID != "":
		s, err := notify.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentialsFile)
		if err != nil {
			return nil, err
		}
		logger.Info("delivering notifications through FCM", zap.String("project", cfg.FCMProjectID))
		return s, nil
	case cfg.NotifyCommand != "":
		fields := strings.Fields(cfg.NotifyCommand)
		logger.Info("delivering notifications through command", zap.String("command", fields[0]))
		return notify.NewExecSender(5*time.Second, fields[0], fields[1:]...), nil
	default:
		logger.Warn("no notification transport configured, logging notifications only")
		return notify.NewLogSender(logger.Named("notify")), nil
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.drishti/web.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".drishti", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
