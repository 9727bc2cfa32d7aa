package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/backoffice/internal/config"
	"github.com/you/backoffice/internal/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	limiterIdle     = 10 * time.Minute
)

// Run serves HTTP and runs the background sweeps until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	log := logger.Named("app")
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	c, err := NewContainer(ctx, cfg, logger.Log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("close container", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	bgCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if cfg.SweepEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Scheduler.Run(bgCtx, cfg.SweepInterval)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Limiter.Cleanup(bgCtx, time.Minute, limiterIdle)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("timezone", cfg.Location.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
		if err != nil {
			err = fmt.Errorf("http server: %w", err)
		}
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shErr := srv.Shutdown(shutdownCtx); shErr != nil {
		log.Error("forced shutdown", zap.Error(shErr))
	}

	wg.Wait()
	c.OTPSvc.Wait()
	log.Info("stopped")
	return err
}
