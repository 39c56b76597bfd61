package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/y2kparty/console-backend/internal/cartridge"
	"github.com/y2kparty/console-backend/internal/config"
	"github.com/y2kparty/console-backend/internal/games/buzzer"
	"github.com/y2kparty/console-backend/internal/games/minesweeper"
	"github.com/y2kparty/console-backend/internal/games/pictureguess"
	"github.com/y2kparty/console-backend/internal/games/pixelperfect"
	"github.com/y2kparty/console-backend/internal/games/priceguess"
	"github.com/y2kparty/console-backend/internal/games/static"
	"github.com/y2kparty/console-backend/internal/games/survival"
	"github.com/y2kparty/console-backend/internal/games/timeline"
	"github.com/y2kparty/console-backend/internal/games/timer"
	"github.com/y2kparty/console-backend/internal/hub"
	"github.com/y2kparty/console-backend/internal/httpapi"
	"github.com/y2kparty/console-backend/internal/registry"
	"github.com/y2kparty/console-backend/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	reg := registry.New(cfg.DataDir, logger)

	catalog := cartridge.NewCatalog(logger)
	catalog.Register(static.New("LOBBY", "Lobby"))
	catalog.Register(static.New("VICTORY", "Victory"))
	catalog.Register(static.New("MACGYVER", "MacGyver"))
	catalog.Register(timer.New())
	catalog.Register(minesweeper.New(reg))
	catalog.Register(pictureguess.New(reg))
	catalog.Register(priceguess.New(reg))
	catalog.Register(timeline.New(reg))
	catalog.Register(buzzer.New(reg))
	catalog.Register(survival.New(reg))
	catalog.Register(pixelperfect.New(reg))

	h := hub.New(reg, cfg.AdminPassword, logger)
	rt := router.New(h, reg, catalog, logger)
	h.AttachRouter(rt)
	rt.Restore()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(h, reg, cfg, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		reg.RunSweeper(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
