package bot

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"autoorderbot/internal/config"
	"autoorderbot/internal/models"
	"autoorderbot/internal/order"
	"autoorderbot/internal/pkg/telegram"
	"autoorderbot/internal/redeem"
	"autoorderbot/internal/repository"
)

// Auxiliary conversation stages outside the order flow, kept in the same
// session store so a new flow always replaces the previous one.
const (
	stageAwaitCodeAmount = "awaiting_code_amount"
	stageAwaitRedeemFile = "awaiting_redeem_file"
)

// Bot wraps the telebot instance and handlers.
type Bot struct {
	tb         *tele.Bot
	webhook    *tele.Webhook
	useWebhook bool
	cfg        *config.Config
	repos      *BotRepos
	processor  *order.Processor
	tracker    *order.Tracker
	registry   *redeem.Registry
	sessions   *order.SessionStore
	botAPI     *telegram.BotAPI
	logger     *zap.Logger
}

// BotRepos bundles all repositories needed by bot handlers.
type BotRepos struct {
	User   *repository.UserRepository
	Order  *repository.OrderRepository
	Redeem *repository.RedeemCodeRepository
}

// New creates and configures a new Bot instance.
func New(
	cfg *config.Config,
	repos *BotRepos,
	processor *order.Processor,
	tracker *order.Tracker,
	registry *redeem.Registry,
	sessions *order.SessionStore,
	botAPI *telegram.BotAPI,
	logger *zap.Logger,
) (*Bot, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Bot.UpdateMode))
	if mode == "" {
		mode = "auto"
	}

	useWebhook := true
	switch mode {
	case "polling":
		useWebhook = false
	case "webhook":
		useWebhook = true
	default: // auto
		useWebhook = strings.TrimSpace(cfg.Bot.WebhookURL) != ""
	}

	var poller tele.Poller
	var webhook *tele.Webhook
	if useWebhook {
		if strings.TrimSpace(cfg.Bot.WebhookURL) == "" {
			return nil, fmt.Errorf("BOT_WEBHOOK_URL is required when BOT_UPDATE_MODE=webhook")
		}
		webhook = &tele.Webhook{
			Listen:   "", // Empty: we mount on Echo instead of telebot's own server
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Bot.WebhookURL},
		}
		poller = webhook
	} else {
		poller = &tele.LongPoller{Timeout: 10 * time.Second}
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: poller,
		OnError: func(err error, c tele.Context) {
			logger.Error("telebot error", zap.Error(err))
		},
	}

	tb, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}

	b := &Bot{
		tb:         tb,
		webhook:    webhook,
		useWebhook: useWebhook,
		cfg:        cfg,
		repos:      repos,
		processor:  processor,
		tracker:    tracker,
		registry:   registry,
		sessions:   sessions,
		botAPI:     botAPI,
		logger:     logger,
	}

	b.registerHandlers()

	return b, nil
}

// WebhookHandler returns the webhook handler for mounting on Echo.
// Returns nil when running in long-polling mode.
func (b *Bot) WebhookHandler() http.Handler {
	return b.webhook
}

// Start begins polling/webhook processing.
func (b *Bot) Start() {
	if b.useWebhook {
		b.logger.Info("Starting Telegram bot", zap.String("mode", "webhook"), zap.String("webhook_url", b.cfg.Bot.WebhookURL))
	} else {
		// Long polling requires webhook to be removed first.
		if err := b.tb.RemoveWebhook(true); err != nil {
			b.logger.Warn("Failed to remove webhook before long polling", zap.Error(err))
		}
		b.logger.Info("Starting Telegram bot", zap.String("mode", "polling"))
	}
	b.tb.Start()
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() {
	b.tb.Stop()
}

// registerHandlers sets up all bot message and callback handlers.
func (b *Bot) registerHandlers() {
	b.tb.Handle("/start", b.handleStart)
	b.tb.Handle(tele.OnText, b.handleText)
	b.tb.Handle(tele.OnDocument, b.handleDocument)
	b.tb.Handle(tele.OnCallback, b.handleCallback)
}

// getUser loads or lazily creates the account for the current chat.
func (b *Bot) getUser(c tele.Context) (*models.User, error) {
	chatID := fmt.Sprintf("%d", c.Chat().ID)

	sender := c.Sender()
	username, firstName := "", ""
	if sender != nil {
		username = sender.Username
		firstName = sender.FirstName
	}

	return b.repos.User.GetOrCreate(&models.User{
		ID:        chatID,
		Username:  username,
		FirstName: firstName,
		IsAdmin:   chatID == b.cfg.Bot.AdminID,
	})
}
