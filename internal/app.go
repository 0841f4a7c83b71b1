package internal

import (
	"antislack/internal/background"
	"antislack/internal/controllers"
	"antislack/internal/host"
	"antislack/internal/maintenance/interfaces"
	"antislack/internal/providers"
	"antislack/internal/storage"
	"antislack/internal/structures"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

type App struct {
	WebServer *http.Server

	conf      *structures.Config
	logger    providers.Logger
	bus       *host.Bus
	alarms    *host.TimerAlarms
	parts     *storage.Partitions
	scheduler interfaces.SchedulerInterface
}

func NewApp(
	healthController *controllers.HealthController,
	scheduler interfaces.SchedulerInterface,
	conf *structures.Config,
	logger providers.Logger,
	router providers.RouterProviderInterface,
	metrics providers.MetricsProviderInterface,
	bus *host.Bus,
	alarms *host.TimerAlarms,
	parts *storage.Partitions,
	_ *background.Handlers,
) *App {
	// Wrap API routes with metrics middleware
	instrumentedAPI := providers.MetricsMiddleware(metrics, router.Handler())

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", metrics.Handler())
	}
	mux.Handle("/", instrumentedAPI)

	return &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		conf:      conf,
		logger:    logger,
		bus:       bus,
		alarms:    alarms,
		parts:     parts,
		scheduler: scheduler,
	}
}

// Boot dispatches the lifecycle event matching the stored state: installed
// on an empty store, startup otherwise.
func (a *App) Boot(ctx context.Context) error {
	var raw map[string]any
	found, err := storage.GetJSON(ctx, a.parts.Sync, storage.KeySettings, &raw)
	if err != nil {
		return err
	}
	if !found {
		a.logger.Infof(providers.TypeApp, "First run, installing defaults")
		a.bus.Dispatch(ctx, host.Event{Type: host.EventInstalled})
		return nil
	}
	a.bus.Dispatch(ctx, host.Event{Type: host.EventStartup})
	return nil
}

// Upgrade runs the updated lifecycle path once without serving: stored
// records are migrated and the rules rebuilt.
func (a *App) Upgrade(ctx context.Context) error {
	a.bus.Dispatch(ctx, host.Event{Type: host.EventUpdated})
	a.alarms.StopAll()
	return a.scheduler.Persist()
}

// Run serves until SIGINT/SIGTERM or a component fails, then shuts down
// and persists buffered state.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Infof(providers.TypeApp, "Starting %s", a.conf.AppName)
	if err := a.Boot(ctx); err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	a.scheduler.Init()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.bus.Run(gctx)
		return nil
	})
	g.Go(func() error {
		a.logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", a.conf.WebServer.Host, a.conf.WebServer.Port)
		if err := a.WebServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Infof(providers.TypeApp, "Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.WebServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.scheduler.Stop()
	a.alarms.StopAll()
	if perr := a.scheduler.Persist(); perr != nil {
		err = errors.Join(err, perr)
	}
	if err != nil {
		return err
	}
	a.logger.Infof(providers.TypeApp, "gracefully stopped")
	return nil
}
