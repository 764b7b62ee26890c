package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talkincode/cookbook/config"
	"github.com/talkincode/cookbook/internal/api"
	"github.com/talkincode/cookbook/internal/app"
	"github.com/talkincode/cookbook/internal/webserver"
	"go.uber.org/zap"
)

var (
	version = "develop"

	cfile  = flag.String("c", "", "config yaml file")
	initdb = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	showV  = flag.Bool("v", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *showV {
		fmt.Println(version)
		return
	}

	cfg, err := config.LoadConfig(*cfile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer application.Release()

	if *initdb {
		if err := application.InitDb(); err != nil {
			zap.S().Error(err)
			return
		}
		zap.S().Info("database initialized")
		return
	}

	srv := webserver.NewServer(cfg.Web, cfg.System.Debug)
	api.NewHandler(
		application.RecipeService(),
		application.CategoryService(),
		application.IngredientService(),
	).Register(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Errorf("web server exited: %v", err)
		}
	case <-ctx.Done():
		zap.S().Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.S().Errorf("web server shutdown: %v", err)
		}
	}
}
