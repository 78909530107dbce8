package bot

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"autoorderbot/internal/models"
	"autoorderbot/internal/order"
	"autoorderbot/internal/pkg/utils"
	"autoorderbot/internal/redeem"
)

// ── /start ────────────────────────────────────────────────────────────

func (b *Bot) handleStart(c tele.Context) error {
	user, err := b.getUser(c)
	if err != nil {
		b.logger.Error("Failed to load user", zap.Error(err))
		return c.Send("❌ Something went wrong. Please try again.")
	}

	// A fresh /start always resets any pending conversation.
	b.sessions.Delete(user.ID)

	text := fmt.Sprintf("🌟 <b>Welcome to Auto Order Bot</b> 🌟\n\nYour current limit: <b>%d</b> links\n\nSelect an option below:", user.Balance)
	return c.Send(text, mainMenuKeyboard(user.IsAdmin), tele.ModeHTML)
}

// ── Text routing ──────────────────────────────────────────────────────

func (b *Bot) handleText(c tele.Context) error {
	user, err := b.getUser(c)
	if err != nil {
		return c.Send("Please use /start first.")
	}

	sess, ok := b.sessions.Get(user.ID)
	if !ok {
		// Stray text with no pending flow is a no-op for the order core.
		return nil
	}

	switch sess.Stage {
	case order.StageAwaitingLinks:
		return b.handleLinksMessage(c, user)
	case stageAwaitCodeAmount:
		return b.handleCodeAmountMessage(c, user)
	case stageAwaitRedeemFile:
		return c.Send("Please send the redeem code file you received.")
	default:
		return nil
	}
}

// ── Callback routing ──────────────────────────────────────────────────

func (b *Bot) handleCallback(c tele.Context) error {
	user, err := b.getUser(c)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Please use /start first."})
	}

	data := strings.TrimPrefix(c.Callback().Data, "\f")
	payload := ""
	if i := strings.Index(data, "|"); i >= 0 {
		data, payload = data[:i], data[i+1:]
	}

	_ = c.Respond()

	switch data {
	case "back_to_main":
		b.sessions.Delete(user.ID)
		return b.editMainMenu(c, user)
	case "user_menu":
		b.sessions.Delete(user.ID)
		text := fmt.Sprintf("🌟 <b>User Menu</b>\n\nYour current limit: <b>%d</b> links\n\nSelect an option:", user.Balance)
		return c.Edit(text, userMenuKeyboard(), tele.ModeHTML)
	case "admin_menu":
		if !user.IsAdmin {
			return c.Respond(&tele.CallbackResponse{Text: "You are not authorized to use this feature"})
		}
		return c.Edit("👑 <b>Admin Menu</b>\n\nSelect an option:", adminMenuKeyboard(), tele.ModeHTML)

	case "order":
		return b.handleOrderStart(c, user)
	case "confirm_order":
		return b.handleConfirmOrder(c, user)
	case "process_order":
		return b.handleProcessOrder(c, user)
	case "cancel_order":
		return b.handleCancelOrder(c, user)

	case "check_limit":
		balance, err := b.repos.User.Balance(user.ID)
		if err != nil {
			balance = user.Balance
		}
		text := fmt.Sprintf("🔢 <b>Your Link Limit</b>\n\nCurrent available limit: <b>%d</b> links\n\nUse this limit to place orders.", balance)
		return c.Edit(text, backKeyboard("back_to_main"), tele.ModeHTML)

	case "order_history":
		return b.handleOrderHistory(c, user)
	case "check_status":
		return b.handleCheckStatus(c, user, payload)

	case "redeem_code":
		b.sessions.Put(&order.Session{UserID: user.ID, Stage: stageAwaitRedeemFile})
		return c.Edit("🎟️ <b>Redeem Code</b>\n\nPlease send the redeem code file you received.", backKeyboard("back_to_main"), tele.ModeHTML)

	case "contact_admin":
		return c.Edit("👤 <b>Contact Admin</b>\n\nYou can contact the admin for assistance or to request more limits.",
			contactAdminKeyboard(b.cfg.Bot.AdminUsername), tele.ModeHTML)

	case "add_code":
		if !user.IsAdmin {
			return c.Respond(&tele.CallbackResponse{Text: "You are not authorized to use this feature"})
		}
		b.sessions.Put(&order.Session{UserID: user.ID, Stage: stageAwaitCodeAmount})
		return c.Edit("➕ <b>Add Redeem Code</b>\n\nPlease specify the limit amount for this code:", backKeyboard("back_to_main"), tele.ModeHTML)

	case "check_all_limits":
		if !user.IsAdmin {
			return c.Respond(&tele.CallbackResponse{Text: "You are not authorized to use this feature"})
		}
		return b.handleAllLimits(c)
	}

	return nil
}

func (b *Bot) editMainMenu(c tele.Context, user *models.User) error {
	balance, err := b.repos.User.Balance(user.ID)
	if err != nil {
		balance = user.Balance
	}
	text := fmt.Sprintf("🌟 <b>Welcome to Auto Order Bot</b> 🌟\n\nYour current limit: <b>%d</b> links\n\nSelect an option below:", balance)
	return c.Edit(text, mainMenuKeyboard(user.IsAdmin), tele.ModeHTML)
}

// ── Redeem code flow ──────────────────────────────────────────────────

func (b *Bot) handleDocument(c tele.Context) error {
	user, err := b.getUser(c)
	if err != nil {
		return c.Send("Please use /start first.")
	}

	sess, ok := b.sessions.Get(user.ID)
	if !ok || sess.Stage != stageAwaitRedeemFile {
		return nil
	}
	b.sessions.Delete(user.ID)

	doc := c.Message().Document
	if doc == nil {
		return c.Send("❌ Could not read the file. Please try again.")
	}

	filePath, err := b.botAPI.GetFilePath(doc.FileID)
	if err != nil {
		b.logger.Error("Failed to resolve redeem file", zap.Error(err))
		return c.Send("❌ Error processing the redeem code. Please try again or contact admin.")
	}
	fileData, err := b.botAPI.DownloadFile(filePath)
	if err != nil {
		b.logger.Error("Failed to download redeem file", zap.Error(err))
		return c.Send("❌ Error processing the redeem code. Please try again or contact admin.")
	}

	token, err := redeem.DecodeCodeFile(fileData)
	if err != nil {
		return c.Send("❌ Invalid redeem code file. The file has been tampered with.")
	}

	amount, err := b.registry.Redeem(token, user.ID)
	switch {
	case errors.Is(err, redeem.ErrCodeNotFound):
		return c.Send("❌ Invalid redeem code. Code not found.")
	case errors.Is(err, redeem.ErrCodeConsumed):
		return c.Send("❌ This code has already been redeemed.")
	case err != nil:
		b.logger.Error("Redeem failed", zap.String("user_id", user.ID), zap.Error(err))
		return c.Send("❌ Error processing the redeem code. Please try again or contact admin.")
	}

	balance, err := b.repos.User.Balance(user.ID)
	if err != nil {
		balance = user.Balance + amount
	}
	return c.Send(fmt.Sprintf("✅ Code successfully redeemed!\n\nAdded limit: %d\nYour new total limit: %d", amount, balance))
}

// ── Admin: issue code ─────────────────────────────────────────────────

func (b *Bot) handleCodeAmountMessage(c tele.Context, user *models.User) error {
	if !user.IsAdmin {
		b.sessions.Delete(user.ID)
		return nil
	}

	amount := utils.ParseInt(c.Message().Text, 0)
	if amount <= 0 {
		return c.Send("❌ Please enter a valid number greater than 0")
	}

	code, err := b.registry.Issue(amount, user.ID)
	if err != nil {
		b.logger.Error("Failed to issue redeem code", zap.Error(err))
		return c.Send("❌ Failed to create the code. Please try again.")
	}
	b.sessions.Delete(user.ID)

	artifact := redeem.EncodeCodeFile(code.Code, code.Amount)
	filename := fmt.Sprintf("redeem_code_%d_links.code", amount)
	caption := fmt.Sprintf("✅ Redeem code created successfully!\nLimit amount: %d links\n\nThis file can be shared with users for redemption.", amount)
	if _, err := b.botAPI.SendDocument(user.ID, artifact, filename, caption); err != nil {
		b.logger.Error("Failed to send code file", zap.Error(err))
		return c.Send("❌ Code was created but the file could not be sent. Token: <code>" + code.Code + "</code>")
	}

	return c.Send("Select an option:", adminMenuKeyboard())
}

// ── Admin: all user limits ────────────────────────────────────────────

func (b *Bot) handleAllLimits(c tele.Context) error {
	users, _, err := b.repos.User.FindAll(200, 1)
	if err != nil {
		b.logger.Error("Failed to list users", zap.Error(err))
		return c.Edit("❌ Failed to load user list.", backKeyboard("admin_menu"))
	}

	var sb strings.Builder
	sb.WriteString("👥 <b>All User Limits</b>\n\n")
	for i, u := range users {
		name := u.Username
		if name == "" {
			name = u.FirstName
		}
		if name == "" {
			name = u.ID
		}
		sb.WriteString(fmt.Sprintf("%d. %s - <b>%d</b> links\n", i+1, name, u.Balance))
	}

	text := sb.String()
	if len(text) > 4000 {
		chatID := fmt.Sprintf("%d", c.Chat().ID)
		plain := strings.NewReplacer("<b>", "", "</b>", "").Replace(text)
		if _, err := b.botAPI.SendDocument(chatID, []byte(plain), "user_limits.txt", ""); err != nil {
			b.logger.Error("Failed to send limits file", zap.Error(err))
		}
		return c.Edit("👥 <b>All User Limits</b>\n\nUser list has been sent as a file due to its length.",
			backKeyboard("admin_menu"), tele.ModeHTML)
	}

	return c.Edit(text, backKeyboard("admin_menu"), tele.ModeHTML)
}
