package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jpbarro/HoW-X/internal/auth"
	"github.com/jpbarro/HoW-X/internal/middleware"
	"github.com/jpbarro/HoW-X/internal/posts"
	"github.com/jpbarro/HoW-X/internal/router"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}
	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, log: log}
	defer a.close()
	if err := connectAll(ctx, a); err != nil {
		return err
	}
	if err := migrate(ctx, a); err != nil {
		return err
	}

	// ── Handlers ─────────────────────────────────────────────
	sessions := auth.NewSessionStore(a.rdb, auth.SessionTTL)
	authHandler := auth.NewHandler(a.pg, sessions, log.WithField("component", "auth"), cfg.CookieSecure)
	postLog := log.WithField("component", "posts")
	postHandler := posts.NewHandler(posts.NewService(a.mongo, a.minio, postLog), postLog)

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.AuthRPS), cfg.AuthBurst)
	go limiter.Run(ctx)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.New(router.Deps{
			Auth:           authHandler,
			Posts:          postHandler,
			Sessions:       sessions,
			AuthLimiter:    limiter,
			Log:            log,
			CORSOrigins:    cfg.CORSOrigins,
			MaxUploadMB:    cfg.MaxUploadMB,
			TrustedProxies: proxies,
		}),
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Backend listening on :%s", cfg.Port)
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

	log.Info("Shutting down...")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
