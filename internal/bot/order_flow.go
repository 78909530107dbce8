package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"autoorderbot/internal/models"
	"autoorderbot/internal/order"
	"autoorderbot/internal/repository"
	"autoorderbot/internal/smm"
)

// ── Start order flow ──────────────────────────────────────────────────

func (b *Bot) handleOrderStart(c tele.Context, user *models.User) error {
	err := b.processor.Start(context.Background(), user.ID)
	switch {
	case errors.Is(err, repository.ErrInsufficientBalance):
		return c.Edit("❌ <b>Insufficient Limit</b>\n\nYou don't have enough limit to place an order. Please contact the admin to get more limit.",
			contactAdminKeyboard(b.cfg.Bot.AdminUsername), tele.ModeHTML)
	case errors.Is(err, smm.ErrServiceUnavailable), errors.Is(err, smm.ErrPriceExceeded):
		b.logger.Warn("Catalog validation rejected order start", zap.String("user_id", user.ID), zap.Error(err))
		return c.Edit("❌ <b>Ordering Unavailable</b>\n\nThe service catalog is currently unavailable. Please try again later or contact the admin.",
			contactAdminKeyboard(b.cfg.Bot.AdminUsername), tele.ModeHTML)
	case err != nil:
		b.logger.Error("Order start failed", zap.String("user_id", user.ID), zap.Error(err))
		return c.Edit("❌ Could not reach the service provider. Please try again later.",
			backKeyboard("back_to_main"), tele.ModeHTML)
	}

	balance, err := b.repos.User.Balance(user.ID)
	if err != nil {
		balance = user.Balance
	}
	text := fmt.Sprintf("🛒 <b>New Order</b>\n\nYour current limit: <b>%d</b> links\n\nPlease send your links (one per line):\nExample:\nhttps://example.com/1\nhttps://example.com/2", balance)
	return c.Edit(text, cancelKeyboard(), tele.ModeHTML)
}

// ── Links submitted ───────────────────────────────────────────────────

func (b *Bot) handleLinksMessage(c tele.Context, user *models.User) error {
	summary, err := b.processor.SubmitLinks(context.Background(), user.ID, c.Message().Text)
	switch {
	case errors.Is(err, order.ErrNoValidLinks):
		return c.Send("❌ No valid links detected. Please send links starting with http or https, one per line")
	case errors.Is(err, repository.ErrInsufficientBalance):
		return c.Send(
			fmt.Sprintf("❌ You don't have enough limit. Your current limit: %d, Links requested: %d", summary.Balance, summary.Links),
			contactAdminKeyboard(b.cfg.Bot.AdminUsername))
	case errors.Is(err, order.ErrSessionExpired):
		return c.Send("❌ Order session expired. Please start a new order.", backKeyboard("back_to_main"))
	case err != nil:
		b.logger.Error("Link submission failed", zap.String("user_id", user.ID), zap.Error(err))
		return c.Send("❌ Something went wrong. Please try again.")
	}

	text := fmt.Sprintf("📋 <b>Order Summary</b>\n\nLinks detected: %d\nYour available limit: %d\n\nDo you want to proceed?",
		summary.Links, summary.Balance)
	return c.Send(text, confirmKeyboard(), tele.ModeHTML)
}

// ── Confirmation gates ────────────────────────────────────────────────

func (b *Bot) handleConfirmOrder(c tele.Context, user *models.User) error {
	count, err := b.processor.Confirm(context.Background(), user.ID)
	switch {
	case errors.Is(err, order.ErrSessionExpired):
		return c.Edit("❌ Order session expired. Please start a new order.", backKeyboard("back_to_main"))
	case errors.Is(err, repository.ErrInsufficientBalance):
		return c.Edit("❌ <b>Limit Changed</b>\n\nYour limit is no longer enough for this order. Nothing has been charged.",
			backKeyboard("back_to_main"), tele.ModeHTML)
	case err != nil:
		b.logger.Error("Order confirm failed", zap.String("user_id", user.ID), zap.Error(err))
		return c.Edit("❌ Something went wrong. Please try again.", backKeyboard("back_to_main"))
	}

	text := fmt.Sprintf("⚠️ <b>Final Confirmation</b>\n\nYou are about to order %d links. This action cannot be undone.\n\nAre you absolutely sure?", count)
	return c.Edit(text, finalConfirmKeyboard(), tele.ModeHTML)
}

func (b *Bot) handleProcessOrder(c tele.Context, user *models.User) error {
	chatID := fmt.Sprintf("%d", c.Chat().ID)
	msg := c.Message()

	_ = c.Edit("🔄 <b>Processing Order</b>\n\nWorking on your links. Please wait, this may take some time...", tele.ModeHTML)

	progress := func(p order.Progress) {
		text := fmt.Sprintf("🔄 <b>Processing Order</b>\n\nProcessed %d/%d links...\nSuccessful: %d\nFailed: %d",
			p.Done, p.Total, p.Succeeded, p.Failed)
		if _, err := b.botAPI.EditMessageText(chatID, msg.ID, text, nil); err != nil {
			b.logger.Warn("Progress edit failed", zap.Error(err))
		}
	}

	result, err := b.processor.Execute(context.Background(), user.ID, progress)
	switch {
	case errors.Is(err, order.ErrSessionExpired):
		return c.Edit("❌ Order session expired. Please start a new order.", backKeyboard("back_to_main"))
	case errors.Is(err, repository.ErrInsufficientBalance):
		return c.Edit("❌ <b>Limit Changed</b>\n\nYour limit is no longer enough for this order. Nothing has been charged.",
			backKeyboard("back_to_main"), tele.ModeHTML)
	case errors.Is(err, smm.ErrServiceUnavailable), errors.Is(err, smm.ErrPriceExceeded):
		return c.Edit("❌ <b>Order Failed</b>\n\nRequired services are not available at an acceptable price. Nothing has been charged.",
			backKeyboard("back_to_main"), tele.ModeHTML)
	case err != nil:
		b.logger.Error("Batch execution failed", zap.String("user_id", user.ID), zap.Error(err))
		return c.Edit("❌ <b>Order Failed</b>\n\nCould not reach the service provider. Nothing has been charged.",
			backKeyboard("back_to_main"), tele.ModeHTML)
	}

	text := fmt.Sprintf("✅ <b>Order Completed</b>\n\nTotal links: %d\nSuccessful: %d\nFailed: %d\n\nRemaining limit: %d\n\nYou can check the status in Order History.",
		result.Total, result.Succeeded, result.Failed, result.NewBalance)
	return c.Edit(text, orderDoneKeyboard(), tele.ModeHTML)
}

func (b *Bot) handleCancelOrder(c tele.Context, user *models.User) error {
	if !b.processor.Cancel(user.ID) {
		return c.Respond(&tele.CallbackResponse{Text: "The order is already executing and cannot be cancelled."})
	}
	return c.Edit("🛑 <b>Order Cancelled</b>\n\nYour order has been cancelled. Nothing has been charged.",
		backKeyboard("back_to_main"), tele.ModeHTML)
}

// ── History and status ────────────────────────────────────────────────

func (b *Bot) handleOrderHistory(c tele.Context, user *models.User) error {
	orders, err := b.repos.Order.FindByUserID(user.ID, 20)
	if err != nil {
		b.logger.Error("Failed to load order history", zap.String("user_id", user.ID), zap.Error(err))
		return c.Edit("❌ Failed to load your order history.", backKeyboard("back_to_main"))
	}

	if len(orders) == 0 {
		return c.Edit("📜 <b>Order History</b>\n\nYou haven't placed any orders yet.",
			backKeyboard("back_to_main"), tele.ModeHTML)
	}

	var sb strings.Builder
	sb.WriteString("📜 <b>Your Order History</b>\n\n")
	for i, o := range orders {
		sb.WriteString(fmt.Sprintf("%d. %s\n   Status: %s\n   Link: %s\n\n",
			i+1,
			o.CreatedAt.Format("2/1/2006 15:04"),
			o.Status,
			html.EscapeString(displayLink(o.Link))))
	}

	text := sb.String()
	if len(text) > 4000 {
		chatID := fmt.Sprintf("%d", c.Chat().ID)
		plain := strings.NewReplacer("<b>", "", "</b>", "").Replace(text)
		if _, err := b.botAPI.SendDocument(chatID, []byte(plain), "order_history.txt", "📜 Your order history has been exported to this file."); err != nil {
			b.logger.Error("Failed to send history file", zap.Error(err))
		}
		return c.Edit("📜 <b>Order History</b>\n\nYour order history has been sent as a file due to its length.",
			backKeyboard("back_to_main"), tele.ModeHTML)
	}

	return c.Edit(text, historyKeyboard(orders), tele.ModeHTML)
}

func (b *Bot) handleCheckStatus(c tele.Context, user *models.User, payload string) error {
	id, err := strconv.ParseUint(payload, 10, 64)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Order not found"})
	}

	_ = c.Edit("🔍 <b>Checking Order Status</b>\n\nPlease wait while we fetch the latest status...", tele.ModeHTML)

	record, err := b.tracker.Refresh(context.Background(), uint(id))
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		return c.Edit("❌ Order not found.", backKeyboard("order_history"))
	case err != nil:
		b.logger.Warn("Status refresh failed", zap.Uint64("order_id", id), zap.Error(err))
		return c.Edit("❌ <b>Status Check Failed</b>\n\nCould not retrieve status information from the service provider.",
			statusKeyboard(uint(id)), tele.ModeHTML)
	}

	if record.UserID != user.ID && !user.IsAdmin {
		return c.Edit("❌ Order not found.", backKeyboard("order_history"))
	}

	text := fmt.Sprintf(
		"📊 <b>Order Status</b>\n\nDate: %s\nLink: %s\n\n<b>Overall Status: %s</b>\n\nService 1 (%s):\nStart Count: %d\nRemains: %d\n\nService 2 (%s):\nStart Count: %d\nRemains: %d",
		record.CreatedAt.Format("2/1/2006 15:04"),
		html.EscapeString(record.Link),
		record.Status,
		record.Service1ID, record.StartCount1, record.Remains1,
		record.Service2ID, record.StartCount2, record.Remains2,
	)
	return c.Edit(text, statusKeyboard(record.ID), tele.ModeHTML)
}
