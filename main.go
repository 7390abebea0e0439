package main

//go:generate templ generate

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/cristianadrielbraun/tonttukioski/internal/badge"
	"github.com/cristianadrielbraun/tonttukioski/internal/config"
	"github.com/cristianadrielbraun/tonttukioski/internal/handlers"
	"github.com/cristianadrielbraun/tonttukioski/internal/log"
	"github.com/cristianadrielbraun/tonttukioski/internal/portrait"
	"github.com/cristianadrielbraun/tonttukioski/internal/store"
	"github.com/cristianadrielbraun/tonttukioski/internal/wizard"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := log.Base()
		l.Fatal().Err(err).Msg("load config")
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Console: cfg.LogFormat == "console"})
	logger := log.WithComponent("main")

	if err := run(cfg); err != nil {
		logger.Fatal().Err(err).Msg("kiosk stopped")
	}
}

func run(cfg config.Config) error {
	logger := log.WithComponent("main")

	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	provider := portrait.New(cfg.Transform, st, log.WithComponent("portrait"))
	sessions, err := handlers.NewSessions(cfg.SessionCache, wizard.Options{
		Provider:         provider,
		TransformTimeout: cfg.Transform.Timeout,
		Logger:           log.WithComponent("wizard"),
	})
	if err != nil {
		return err
	}
	defer sessions.Close()

	badges := badge.NewService(badge.Options{
		Config: cfg.Badge,
		Store:  st,
		Logger: log.WithComponent("badge"),
	})

	h := handlers.New(handlers.Options{
		Config:   cfg,
		Sessions: sessions,
		Badges:   badges,
		Settings: st,
		Logger:   log.WithComponent("http"),
	})

	if cfg.AdminToken == "" {
		logger.Warn().Msg("KIOSK_ADMIN_TOKEN not set, /admin/settings is read-only")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(log.GinLogger(log.WithComponent("http")))
	r.Use(gin.Recovery())

	// Static assets
	r.Static("/web/static", "web/static")

	corsCfg := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "HX-Request", "HX-Target", "HX-Current-URL")
	h.Routes(r, cors.New(corsCfg))

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", srv.Addr).
			Bool("remote_transform", cfg.Transform.UseRemoteTransform()).
			Bool("direct_obf", cfg.Badge.DirectOBF()).
			Msg("joulun osaaja kiosk listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
