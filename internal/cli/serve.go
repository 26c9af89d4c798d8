package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lotas/recentswitch/internal/api"
	"github.com/lotas/recentswitch/internal/applog"
	"github.com/lotas/recentswitch/internal/background"
	"github.com/lotas/recentswitch/internal/bookmarks"
	"github.com/lotas/recentswitch/internal/browser"
	"github.com/lotas/recentswitch/internal/command"
	"github.com/lotas/recentswitch/internal/config"
	"github.com/lotas/recentswitch/internal/delivery"
	"github.com/lotas/recentswitch/internal/history"
	"github.com/lotas/recentswitch/internal/icon"
	"github.com/lotas/recentswitch/internal/ingest"
	"github.com/lotas/recentswitch/internal/preview"
	"github.com/lotas/recentswitch/internal/server"
	"github.com/lotas/recentswitch/internal/service"
	"github.com/lotas/recentswitch/internal/settings"
	"github.com/lotas/recentswitch/internal/status"
	"github.com/lotas/recentswitch/internal/storage"
)

func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.APIPort != 0 {
		cfg.API.Port = c.APIPort
	}

	if c.Stderr {
		applog.SetOutput(os.Stderr, cfg.Log.Level)
	} else {
		if err := applog.Init(cfg.Log.Dir, cfg.Log.Level); err != nil {
			return fmt.Errorf("init log: %w", err)
		}
		defer applog.Close()
	}

	db, err := storage.OpenDB(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "recentswitch: extension bridge on ws://127.0.0.1:%d, API on http://127.0.0.1:%d\n", cfg.Server.Port, cfg.API.Port)
	return newDaemon(cfg, db).run(ctx)
}

// daemon holds every component of a running serve command.
type daemon struct {
	cfg      *config.Config
	srv      *server.Server
	previews *preview.Service
	worker   *background.Worker
	handler  http.Handler
}

func newDaemon(cfg *config.Config, db *sql.DB) *daemon {
	kv := storage.NewKV(db)
	srv := server.New(cfg.Server.Port)
	remote := browser.NewRemote(srv, cfg.Server.CallTimeout)
	httpClient := &http.Client{Timeout: 10 * time.Second}

	store := history.NewStore(kv, cfg.History.MaxRecords)
	counter := history.NewCounter(kv)
	icons := icon.NewCache(kv, httpClient, cfg.Icons.TTL, cfg.Icons.MaxAge)
	previews := preview.NewService(db, remote, httpClient)
	state := status.New()

	svc := service.New(service.Deps{
		Browser:       remote,
		History:       store,
		Counter:       counter,
		Settings:      settings.NewService(kv),
		Bookmarks:     bookmarks.NewCache(remote),
		Icons:         icons,
		Previews:      previews,
		State:         state,
		BookmarkLimit: cfg.Switcher.BookmarkLimit,
	})
	trigger := command.NewTrigger(remote, state, delivery.Policy{
		Retries:        cfg.Delivery.Retries,
		InitialBackoff: cfg.Delivery.InitialBackoff,
		Timeout:        cfg.Delivery.Timeout,
	}, cfg.Delivery.InjectFiles)
	ingestor := ingest.New(remote, store, counter, previews, ingest.Exclusions{
		Prefixes: cfg.History.ExcludePrefixes,
		URLs:     cfg.History.ExcludeURLs,
	})

	return &daemon{
		cfg:      cfg,
		srv:      srv,
		previews: previews,
		worker:   background.New(srv, ingestor, trigger, svc, icons, cfg.Icons.CleanupInterval),
		handler:  api.NewRouter(svc),
	}
}

// run serves the bridge and the API until ctx is cancelled or either
// listener fails.
func (d *daemon) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 3)
	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				applog.Error("daemon."+name, err)
				errs <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}
	start("bridge", d.srv.ListenAndServe)
	start("api", d.serveAPI)
	start("worker", d.worker.Run)

	applog.Info("daemon.start", "ws_port", d.cfg.Server.Port, "api_port", d.cfg.API.Port)
	<-ctx.Done()
	wg.Wait()
	d.previews.Wait()
	applog.Info("daemon.stop")

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func (d *daemon) serveAPI(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", d.cfg.API.Port)
	applog.Info("api.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: d.handler, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
