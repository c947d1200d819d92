package main

import (
	"context"
	"errors"
	"flag"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elpatron68/todo-web/internal/auth"
	"github.com/elpatron68/todo-web/internal/backend"
	"github.com/elpatron68/todo-web/internal/backend/memory"
	"github.com/elpatron68/todo-web/internal/backend/postgres"
	"github.com/elpatron68/todo-web/internal/config"
	applog "github.com/elpatron68/todo-web/internal/log"
	"github.com/elpatron68/todo-web/internal/server"
	"github.com/elpatron68/todo-web/internal/tasks"
	"github.com/elpatron68/todo-web/internal/ui"
)

const idleControllerTTL = 30 * time.Minute

type stack struct {
	users    auth.UserStore
	store    backend.TaskStore
	notifier backend.Notifier
	run      func(ctx context.Context)
	close    func()
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	listenFlag := flag.String("listen", "", "listen address, overrides TODO_LISTEN and config")
	flag.Parse()

	path := *configPath
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		} else if _, err := os.Stat("../../config.yaml"); err == nil {
			path = "../../config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		stdlog.Fatalf("config error: %v", err)
	}
	applog.InitFromEnvFallback(cfg.Logging.Level, cfg.Logging.Format)
	defer applog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openBackend(ctx, cfg)
	if err != nil {
		stdlog.Fatalf("backend error: %v", err)
	}
	defer st.close()
	if st.run != nil {
		go st.run(ctx)
	}

	for _, u := range cfg.Auth.Users {
		if u.Email == "" || u.PasswordHash == "" {
			continue
		}
		if err := auth.AddUserHash(ctx, st.users, u.Email, []byte(u.PasswordHash)); err != nil {
			stdlog.Fatalf("invalid user in config: %v", err)
		}
	}

	svc, err := auth.NewService(st.users, auth.Options{
		Secret:              []byte(cfg.Auth.Secret),
		SessionTTL:          cfg.Auth.SessionTTL,
		RequireConfirmation: cfg.Auth.RequireConfirmation,
		BaseURL:             cfg.Auth.BaseURL,
	})
	if err != nil {
		stdlog.Fatalf("auth error: %v", err)
	}

	loc, _ := cfg.Location()
	messages := ui.NewMessageStore(0)
	registry := tasks.NewRegistry(ctx, tasks.Options{
		Store:      st.store,
		Notifier:   st.notifier,
		Messages:   messages,
		MessageTTL: cfg.UI.TaskMessageTTL,
		Location:   loc,
	})
	defer registry.CloseAll()

	srv := server.NewServer(cfg, server.Deps{
		Auth:      svc,
		Confirmer: svc,
		Registry:  registry,
		Messages:  messages,
	})
	go srv.PruneLoop(ctx, idleControllerTTL)

	listenAddr := resolveListenAddress(cfg, *listenFlag)
	httpSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		registry.CloseAll()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			applog.Warnf("shutdown: %v", err)
		}
	}()

	applog.Infof("to-do web UI listening on %s (backend=%s)", listenAddr, cfg.Backend.Driver)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stdlog.Fatalf("server error: %v", err)
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (*stack, error) {
	if cfg.Backend.Driver != config.DriverPostgres {
		mem := memory.New()
		return &stack{
			users:    auth.NewInMemoryUserStore(),
			store:    mem,
			notifier: mem,
			close:    func() {},
		}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.Backend.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.Backend.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	listener := postgres.NewListener(pool)
	return &stack{
		users:    postgres.NewUserStore(pool),
		store:    postgres.NewTaskStore(pool),
		notifier: listener,
		run:      listener.Run,
		close:    pool.Close,
	}, nil
}

// resolveListenAddress picks the listen address: flag > TODO_LISTEN > config > :8080.
func resolveListenAddress(cfg *config.Config, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("TODO_LISTEN"); v != "" {
		return v
	}
	if cfg != nil && cfg.Listen != "" {
		return cfg.Listen
	}
	return ":8080"
}
