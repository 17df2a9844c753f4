package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Nomankaif/debtprotection-quiz/internal/apidoc"
	"github.com/Nomankaif/debtprotection-quiz/internal/config"
	"github.com/Nomankaif/debtprotection-quiz/internal/db"
	"github.com/Nomankaif/debtprotection-quiz/internal/gelf"
	"github.com/Nomankaif/debtprotection-quiz/internal/handler"
	"github.com/Nomankaif/debtprotection-quiz/internal/partner"
	"github.com/Nomankaif/debtprotection-quiz/internal/repository"
	"github.com/Nomankaif/debtprotection-quiz/internal/router"
	"github.com/Nomankaif/debtprotection-quiz/internal/service"
	"github.com/Nomankaif/debtprotection-quiz/internal/telemetry"
	"github.com/Nomankaif/debtprotection-quiz/internal/validation"
)

const serviceName = "quizd"

func main() {
	if err := run(); err != nil {
		slog.Error("quizd stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OtelEndpoint)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	partners, err := loadPartners(cfg)
	if err != nil {
		return err
	}
	fwd := partner.NewForwarder(partners, partner.Options{
		Enabled: cfg.ForwardingEnabled,
		Timeout: cfg.PartnerTimeout,
		Logger:  logger.With("component", "partner"),
	})
	for _, p := range partners {
		logger.Info("partner configured", "partner", p.Name, "enabled", p.Enabled && cfg.ForwardingEnabled, "mock", p.Mock)
	}

	subSvc := service.NewSubmissionService(store, fwd, validation.Options{StrictConsent: cfg.StrictConsent}, logger)

	doc, err := apidoc.Load(ctx)
	if err != nil {
		return err
	}
	docH, err := apidoc.Handler(doc)
	if err != nil {
		return err
	}

	deps := router.Deps{
		Logger:         logger,
		CORSOrigin:     cfg.CORSOrigin,
		RequestTimeout: cfg.RequestTimeout,
		JWTSecret:      cfg.JWTSecret,
		SubmissionH:    handler.NewSubmissionHandler(subSvc, logger),
		APIDoc:         docH,
	}
	if cfg.AdminEnabled() {
		if cfg.InsecureJWTSecret() {
			logger.Warn("admin API is using the development JWT secret; set QUIZ_JWT_SECRET")
		}
		authSvc, err := service.NewAuthService(cfg.AdminEmail, cfg.AdminPass, cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return err
		}
		deps.AuthH = handler.NewAuthHandler(authSvc)
		deps.AdminH = handler.NewAdminHandler(subSvc, logger)
	} else {
		logger.Info("admin API disabled; set QUIZ_ADMIN_PASS to enable")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("quizd listening", "addr", srv.Addr, "store", cfg.Store, "forwarding", cfg.ForwardingEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.GelfAddr != "" {
		w, err := gelf.New(cfg.GelfAddr, serviceName)
		if err != nil {
			slog.Warn("GELF init failed", "error", err)
		} else {
			out = io.MultiWriter(os.Stderr, w)
		}
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})).With("service", serviceName)
}

// openStore connects the configured store. OxiDB indexes are built in the
// background on a dedicated connection so a slow build never holds up the
// listener or the request pool.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.Store == config.StoreSQLite {
		store, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("using sqlite store", "path", cfg.SQLitePath)
		return store, nil
	}

	pool, err := db.NewPool(ctx, cfg.OxiDBAddr, cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to OxiDB", "addr", cfg.OxiDBAddr, "pool_size", cfg.PoolSize)

	go func() {
		initPool, err := db.NewPool(ctx, cfg.OxiDBAddr, 1)
		if err != nil {
			logger.Warn("init pool connect failed, using main pool", "error", err)
			initPool = pool
		}
		defer func() {
			if initPool != pool {
				initPool.Close()
			}
		}()
		start := time.Now()
		if err := repository.NewSubmissionRepo(initPool).EnsureIndexes(ctx); err != nil {
			logger.Warn("submission index creation failed", "error", err)
			return
		}
		logger.Info("submission indexes ready", "took", time.Since(start).Round(time.Millisecond))
	}()

	return repository.NewSubmissionRepo(pool), nil
}

func loadPartners(cfg *config.Config) ([]partner.Partner, error) {
	partners := partner.Defaults(partner.Credentials{
		LeadMirrorAPIKey: cfg.LeadMirrorAPIKey,
		DAPSubID:         cfg.DAPSubID,
		DAPSubID2:        cfg.DAPSubID2,
	})
	if cfg.PartnersFile == "" {
		return partners, nil
	}
	overrides, err := partner.LoadOverrides(cfg.PartnersFile)
	if err != nil {
		return nil, err
	}
	return partner.Apply(partners, overrides)
}
