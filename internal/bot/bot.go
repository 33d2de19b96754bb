package bot

import (
	"context"

	"fsubmedia/internal/config"
	"fsubmedia/internal/gate"
	"fsubmedia/internal/registry"

	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wires the update stream to the registry and the access gate.
// Handlers talk to Telegram only through sender, so they can run
// against a fake client; api is used by the polling loop alone.
type Bot struct {
	api      *tgbotapi.BotAPI
	username string
	cfg      *config.Config
	log      *zap.Logger
	sender   *Sender
	registry *registry.Registry
	gate     *gate.Gate
}

// New creates the bot instance and its access gate.
func New(cfg *config.Config, log *zap.Logger, reg *registry.Registry) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	log.Info("bot authorized", zap.String("username", api.Self.UserName))

	return &Bot{
		api:      api,
		username: api.Self.UserName,
		cfg:      cfg,
		log:      log,
		sender:   NewSender(api, log),
		registry: reg,
		gate:     gate.New(memberSource{api: api}, cfg.Requirements, cfg.GateTimeout, log),
	}, nil
}

// Run starts long-polling update handling. Blocks until ctx is canceled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("bot started, waiting for updates...")
	for {
		select {
		case <-ctx.Done():
			b.log.Info("shutting down gracefully")
			return
		case upd := <-updates:
			// Per-update goroutine: one conversation's send backoff
			// or a slow gate check must not stall the others.
			go b.handleUpdate(ctx, upd)
		}
	}
}

// handleUpdate dispatches one update. Conversations with the bot are
// private; group and channel traffic is ignored.
func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in handler", zap.Any("recover", r))
			if chat := upd.FromChat(); chat != nil {
				b.sender.Text(chat.ID, "❌ Internal error. Please try again later.")
			}
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		msg := upd.Message
		if !msg.Chat.IsPrivate() {
			return
		}
		if msg.IsCommand() {
			b.handleCommand(ctx, msg)
			return
		}
		b.handleMedia(ctx, msg)
	}
}
