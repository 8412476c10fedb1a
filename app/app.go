// Package app wires the registration dialogue into the Telegram runtime:
// commands, conversation text routing and the admin roster.
package app

import (
	"errors"

	"github.com/m3rciful/regbot/conversation"
	coreconfig "github.com/m3rciful/regbot/core/config"
	tg "github.com/m3rciful/regbot/core/telegram"
	tghelpers "github.com/m3rciful/regbot/core/telegram/helpers"
	"github.com/m3rciful/regbot/core/telegram/router"
	"github.com/m3rciful/regbot/registration"

	tele "gopkg.in/telebot.v4"
)

// App is the registration bot.
type App struct {
	cfg      *coreconfig.Config
	store    registration.Store
	machine  *conversation.Machine
	registry *tg.Registry

	// send delivers a reply; choices become a one-time keyboard.
	send func(c tele.Context, text string, choices []string) error
}

// New builds the bot over an initialized store.
func New(cfg *coreconfig.Config, store registration.Store) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	machine, err := conversation.New(store, nil, conversation.Options{
		AffirmativeToken: cfg.Conversation.AffirmativeToken,
		StrictConfirm:    cfg.Conversation.StrictConfirm,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		store:    store,
		machine:  machine,
		registry: tg.NewRegistry(),
		send:     tghelpers.SendChoices,
	}
	a.registerCommands()
	return a, nil
}

func (a *App) registerCommands() {
	a.registry.RegisterCommand("/start", tg.Command{Handler: a.onStart, Description: "شروع ثبت‌نام"})
	a.registry.RegisterCommand("/cancel", tg.Command{Handler: a.onCancel, Description: "لغو عملیات"})
	a.registry.RegisterCommand("/help", tg.Command{Handler: a.onHelp, Description: "راهنما"})
	a.registry.RegisterCommand("/list", tg.Command{Handler: a.onList, Description: "فهرست ثبت‌نام‌ها", AdminOnly: true})
	a.registry.SetTextFallback(a.onUnknownText)
}

// CoreConfig returns the process configuration.
func (a *App) CoreConfig() *coreconfig.Config { return a.cfg }

// Registry exposes the command registry.
func (a *App) Registry() *tg.Registry { return a.registry }

// Close releases the record store.
func (a *App) Close() error { return a.store.Close() }

// TelegramRunOptions assembles middleware and routes for the runtime.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminIDs:      a.cfg.Telegram.AdminIDs,
		OnAdminReject: a.onAdminReject,
	})
	routes = append(routes, router.TextRoutes(a, a.registry, router.TextOptions{
		UnknownMedia: a.onMedia,
	})...)

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(a.cfg, a.onLimited),
		Routes:      routes,
	}, nil
}
