// Package app assembles the bridge bot from its components and exposes the
// run options consumed by the core runner.
package app

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/avelune/xmrbridge/bridge/client"
	"github.com/avelune/xmrbridge/bridge/handlers"
	"github.com/avelune/xmrbridge/bridge/ratelimit"
	"github.com/avelune/xmrbridge/bridge/session"
	"github.com/avelune/xmrbridge/bridge/watch"
	corecmd "github.com/avelune/xmrbridge/core/cmd"
	coreconfig "github.com/avelune/xmrbridge/core/config"
	"github.com/avelune/xmrbridge/core/logger"
	coretelegram "github.com/avelune/xmrbridge/core/telegram"
	"github.com/avelune/xmrbridge/core/telegram/helpers"
	"github.com/avelune/xmrbridge/core/telegram/router"
)

// Carrier wraps the loaded configuration for the core runner.
type Carrier struct {
	cfg *coreconfig.Config
}

// CoreConfig returns the embedded core configuration.
func (c *Carrier) CoreConfig() *coreconfig.Config { return c.cfg }

// LoadConfig loads configuration and initializes logging.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg); err != nil {
		return nil, fmt.Errorf("logger init: %w", err)
	}
	return &Carrier{cfg: cfg}, nil
}

// App owns the assembled bot components.
type App struct {
	cfg *coreconfig.Config

	api      *client.Client
	sessions *session.Store
	limiter  *ratelimit.Limiter
	notifier *handlers.TelegramNotifier
	watcher  *watch.Watcher
	handlers *handlers.Handlers

	// watchCtx outlives individual updates and is cancelled on shutdown so
	// order watches stop with the process.
	watchCtx    context.Context
	watchCancel context.CancelFunc
}

// Bootstrap builds the application from a loaded configuration.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg := carrier.CoreConfig()

	api := client.New(cfg.API.BaseURL)
	sessions := session.NewStore()
	limiter := ratelimit.New(ratelimit.Options{
		MessageLimit: cfg.RateLimit.MaxMessagesPerMinute,
		OrderLimit:   cfg.RateLimit.MaxOrdersPerHour,
	})
	notifier := handlers.NewTelegramNotifier()
	watcher := watch.New(api, notifier, watch.Options{
		Interval: time.Duration(cfg.Watch.PollIntervalSeconds) * time.Second,
		MaxPolls: cfg.Watch.MaxPolls,
	})

	watchCtx, watchCancel := context.WithCancel(context.Background())

	h := handlers.New(handlers.Deps{
		API:      api,
		Sessions: sessions,
		Limiter:  limiter,
		Watcher:  watcher,
		Ctx:      watchCtx,
		AdminIDs: cfg.Telegram.AdminIDs,
	})

	return &App{
		cfg:         cfg,
		api:         api,
		sessions:    sessions,
		limiter:     limiter,
		notifier:    notifier,
		watcher:     watcher,
		handlers:    h,
		watchCtx:    watchCtx,
		watchCancel: watchCancel,
	}, nil
}

// TelegramRunOptions wires registry, middleware and routes for the core runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.handlers.Register(reg)

	reg.SetTextFallback(func(c tele.Context) error {
		return helpers.SendHTML(c, "❓ I didn't understand that. Use /help to see what I can do.")
	})

	onLimited := func(c tele.Context) error {
		return helpers.SendHTML(c, "⚠️ Slow down a little, please.")
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminIDs: a.cfg.Telegram.AdminIDs,
		OnAdminReject: func(c tele.Context) error {
			return helpers.SendHTML(c, "\U0001f6ab You are not authorized to use this command.")
		},
	})
	routes = append(routes, router.TextRoutes(a.handlers, reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(a.limiter, onLimited),
		Routes:      routes,
		OnStart: func(_ context.Context, rt coretelegram.Runtime) error {
			a.notifier.Bind(rt.Bot)
			return nil
		},
		OnStop: func(_ context.Context, _ coretelegram.Runtime) error {
			a.watchCancel()
			a.watcher.Wait()
			return nil
		},
	}, nil
}
