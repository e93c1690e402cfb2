package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audience/config"
	"audience/internal/audiencesvc"
	"audience/internal/db"
	"audience/internal/devicesvc"
	"audience/internal/health"
	"audience/internal/logs"
	"audience/internal/metrics"
	"audience/internal/middleware"
	"audience/internal/repo"
	"audience/internal/validation"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	cfg        *config.Config
	Router     *mux.Router
	httpServer *http.Server

	db      *gorm.DB
	metrics *metrics.Metrics
	ctx     context.Context
	cancel  context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) error {
	if cfg == nil {
		return ErrNotInitialized
	}
	a.cfg = cfg
	a.ctx, a.cancel = context.WithCancel(context.Background())

	// 1) Логи
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	// 2) БД + таблицы
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN, logs.Logger)
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	a.db = d
	if err := db.Migrate(a.db, a.cfg.Database.ResetOnStart); err != nil {
		_ = a.closeDB()
		return fmt.Errorf("db migrate: %w", err)
	}
	if a.cfg.Database.ResetOnStart {
		logs.Logger.Warn("database reset on start: all devices and audience records dropped")
	}

	// 3) Роутер + middleware
	a.metrics = metrics.New()
	a.Router = mux.NewRouter()
	// Recoverer последним: паника попадает в access-лог и метрики как 500
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.LoggerMW)
	a.Router.Use(middleware.Metrics(a.metrics))
	a.Router.Use(middleware.Recoverer)

	// 4) /status, /healthz, /readyz
	health.RegisterRoutesWithDB(a.Router, a.db)

	// 5) Устройства и аудитория
	v := validation.New()
	devices := repo.NewDeviceStore(a.db)
	audience := repo.NewAudienceStore(a.db)

	devicesvc.NewHTTP(devices, v, a.metrics).RegisterRoutes(a.Router)

	audHTTP := audiencesvc.NewHTTP(audience, v, a.metrics)
	if a.cfg.Features.Simulate {
		audHTTP.WithSimulation(devices, audiencesvc.NewSimulator(nil, nil))
	}
	audHTTP.RegisterRoutes(a.Router)

	if a.cfg.Metrics.Enabled {
		a.Router.Handle(a.cfg.Metrics.Path, a.metrics.Handler()).Methods(http.MethodGet)
	}

	_ = a.Router.Walk(func(rt *mux.Route, r *mux.Router, ancestors []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		logs.Logger.Debugf("route: %-8v %s", methods, path)
		return nil
	})
	return nil
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return ErrNotInitialized
	}
	defer func() {
		if err := a.closeDB(); err != nil {
			logs.Logger.Warnf("db close: %v", err)
		}
	}()

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	defer a.cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			a.cancel()
		case <-a.ctx.Done():
		}
	}()

	a.httpServer = &http.Server{
		Addr:         bind,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-a.ctx.Done():
	}

	logs.Logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.httpServer.Shutdown(ctx)
}

func (a *App) closeDB() error {
	if a.db == nil {
		return nil
	}
	err := db.Close(a.db)
	a.db = nil
	return err
}

// Stop triggers the same graceful shutdown as SIGTERM.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

var ErrNotInitialized = &initError{"server not initialized (call Initialize(cfg) first)"}

type initError struct{ s string }

func (e *initError) Error() string { return e.s }
