package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v3"

	"autoorderbot/internal/models"
	"autoorderbot/internal/pkg/utils"
)

func mainMenuKeyboard(isAdmin bool) *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	if isAdmin {
		kb.Inline(
			tele.Row{kb.Data("👥 User Menu", "user_menu"), kb.Data("👑 Admin Menu", "admin_menu")},
		)
		return kb
	}
	kb.Inline(
		tele.Row{kb.Data("🛒 Order", "order")},
		tele.Row{kb.Data("🔢 Check Limit", "check_limit")},
		tele.Row{kb.Data("📜 Order History", "order_history")},
		tele.Row{kb.Data("🎟️ Redeem Code", "redeem_code")},
		tele.Row{kb.Data("👤 Contact Admin", "contact_admin")},
	)
	return kb
}

func userMenuKeyboard() *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	kb.Inline(
		tele.Row{kb.Data("🛒 Order", "order")},
		tele.Row{kb.Data("🔢 Check Limit", "check_limit")},
		tele.Row{kb.Data("📜 Order History", "order_history")},
		tele.Row{kb.Data("🎟️ Redeem Code", "redeem_code")},
		tele.Row{kb.Data("👤 Contact Admin", "contact_admin")},
		tele.Row{kb.Data("🔙 Back", "back_to_main")},
	)
	return kb
}

func adminMenuKeyboard() *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	kb.Inline(
		tele.Row{kb.Data("➕ Add Code", "add_code")},
		tele.Row{kb.Data("👁️ Check User Limits", "check_all_limits")},
		tele.Row{kb.Data("🔙 Back", "back_to_main")},
	)
	return kb
}

func backKeyboard(target string) *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	kb.Inline(tele.Row{kb.Data("🔙 Back", target)})
	return kb
}

func cancelKeyboard() *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	kb.Inline(tele.Row{kb.Data("🔙 Cancel", "cancel_order")})
	return kb
}

func confirmKeyboard() *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	kb.Inline(tele.Row{
		kb.Data("✅ Confirm Order", "confirm_order"),
		kb.Data("❌ Cancel", "cancel_order"),
	})
	return kb
}

func finalConfirmKeyboard() *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	kb.Inline(tele.Row{
		kb.Data("✅ Complete Order (100%)", "process_order"),
		kb.Data("❌ Cancel", "cancel_order"),
	})
	return kb
}

func contactAdminKeyboard(adminUsername string) *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	kb.Inline(
		tele.Row{kb.URL("📞 Chat with Admin", "https://t.me/"+adminUsername)},
		tele.Row{kb.Data("🔙 Back", "back_to_main")},
	)
	return kb
}

func orderDoneKeyboard() *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	kb.Inline(
		tele.Row{kb.Data("📜 View Order History", "order_history")},
		tele.Row{kb.Data("🔙 Back to Main", "back_to_main")},
	)
	return kb
}

func historyKeyboard(orders []models.Order) *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(orders)+1)
	for i, o := range orders {
		rows = append(rows, tele.Row{
			kb.Data(fmt.Sprintf("📊 Check Status #%d", i+1), "check_status", fmt.Sprintf("%d", o.ID)),
		})
	}
	rows = append(rows, tele.Row{kb.Data("🔙 Back", "back_to_main")})
	kb.Inline(rows...)
	return kb
}

func statusKeyboard(orderID uint) *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	kb.Inline(
		tele.Row{kb.Data("🔄 Refresh Status", "check_status", fmt.Sprintf("%d", orderID))},
		tele.Row{kb.Data("🔙 Back to History", "order_history")},
	)
	return kb
}

func displayLink(link string) string {
	return utils.TruncateLink(link, 30)
}
