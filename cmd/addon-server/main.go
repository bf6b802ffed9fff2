// Command addon-server runs a chat add-on backed by a SQL credential store.
// It answers "/echo <text>" room messages with a room notification.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	addons "github.com/goliatone/go-chat-addons"
	"github.com/goliatone/go-chat-addons/client"
	"github.com/goliatone/go-chat-addons/core"
	"github.com/goliatone/go-chat-addons/events"
	"github.com/goliatone/go-chat-addons/hooks"
	sqlstore "github.com/goliatone/go-chat-addons/store/sql"
	"github.com/goliatone/go-chat-addons/web"
)

type serverEnv struct {
	ListenAddr      string        `env:"ADDON_LISTEN_ADDR" envDefault:":8080"`
	ConfigPath      string        `env:"ADDON_CONFIG_PATH" envDefault:"addon.toml"`
	LogLevel        string        `env:"ADDON_LOG_LEVEL" envDefault:"info"`
	DBDriver        string        `env:"ADDON_DB_DRIVER" envDefault:"sqlite3"`
	DBDSN           string        `env:"ADDON_DB_DSN" envDefault:"file:addons.db?cache=shared"`
	CacheTTL        time.Duration `env:"ADDON_CACHE_TTL" envDefault:"5m"`
	SecretKey       string        `env:"ADDON_SECRET_KEY"`
	ShutdownTimeout time.Duration `env:"ADDON_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

const echoCommand = "/echo"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var settings serverEnv
	if err := env.Parse(&settings); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	logger := newSlogLogger(settings.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := sqlstore.Open(ctx, sqlstore.PersistenceConfig{
		Driver:    settings.DBDriver,
		DSN:       settings.DBDSN,
		CacheTTL:  settings.CacheTTL,
		SecretKey: settings.SecretKey,
	})
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	manager, err := addons.NewManager(addons.Config{},
		addons.WithLogger(logger),
		addons.WithConfigProvider(core.NewCfgxConfigProvider(core.TOMLFileLoader{Path: settings.ConfigPath})),
		addons.WithCredentialStore(stores.Credentials),
	)
	if err != nil {
		return err
	}
	if _, err := manager.On(hooks.CategoryRoomMessage, echoHandler(manager)); err != nil {
		return err
	}

	handler, err := web.NewHandler(manager, manager.Config(), web.WithLogger(logger))
	if err != nil {
		return err
	}
	server := web.NewServer(settings.ListenAddr, logger, handler)

	errs := make(chan error, 1)
	go func() {
		errs <- server.Start()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func echoHandler(manager *addons.Manager) hooks.Handler {
	return func(ctx context.Context, cred *core.Credential, ev events.Event) (hooks.Result, error) {
		messaging, ok := ev.(*events.RoomMessaging)
		if !ok || cred == nil {
			return hooks.Continue, nil
		}
		msg, err := messaging.Message()
		if err != nil {
			return hooks.Continue, err
		}
		text, found := strings.CutPrefix(strings.TrimSpace(msg.Message), echoCommand)
		if !found {
			return hooks.Continue, nil
		}
		room, err := messaging.Room()
		if err != nil {
			return hooks.Continue, err
		}

		api, err := manager.ClientFor(*cred)
		if err != nil {
			return hooks.Continue, err
		}
		err = api.SendNotification(ctx, client.Notification{
			RoomID:  fmt.Sprint(room.ID),
			Message: strings.TrimSpace(text),
			Format:  "text",
		})
		return hooks.Stop, err
	}
}
