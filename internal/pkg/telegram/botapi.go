package telegram

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// BotAPI provides a direct Telegram Bot API client for methods where
// telebot's context is not at hand (progress edits from worker code,
// document uploads, file downloads).
type BotAPI struct {
	token  string
	client *resty.Client
}

// NewBotAPI creates a new direct Telegram Bot API client.
func NewBotAPI(token string) *BotAPI {
	return &BotAPI{
		token:  token,
		client: resty.New().SetBaseURL("https://api.telegram.org/bot" + token),
	}
}

// Call makes a raw API call to the Telegram Bot API.
func (b *BotAPI) Call(method string, params map[string]interface{}) (string, error) {
	resp, err := b.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(params).
		Post("/" + method)
	if err != nil {
		return "", fmt.Errorf("telegram API call %s failed: %w", method, err)
	}
	return resp.String(), nil
}

// SendMessage sends a text message.
func (b *BotAPI) SendMessage(chatID string, text string, replyMarkup interface{}) (string, error) {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if replyMarkup != nil {
		params["reply_markup"] = replyMarkup
	}
	return b.Call("sendMessage", params)
}

// EditMessageText edits a message's text.
func (b *BotAPI) EditMessageText(chatID string, messageID int, text string, replyMarkup interface{}) (string, error) {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if replyMarkup != nil {
		params["reply_markup"] = replyMarkup
	}
	return b.Call("editMessageText", params)
}

// DeleteMessage deletes a message.
func (b *BotAPI) DeleteMessage(chatID string, messageID int) (string, error) {
	return b.Call("deleteMessage", map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	})
}

// AnswerCallbackQuery answers an inline callback query.
func (b *BotAPI) AnswerCallbackQuery(callbackQueryID, text string, showAlert bool) (string, error) {
	return b.Call("answerCallbackQuery", map[string]interface{}{
		"callback_query_id": callbackQueryID,
		"text":              text,
		"show_alert":        showAlert,
	})
}

// SendDocument sends a document from in-memory bytes.
func (b *BotAPI) SendDocument(chatID string, fileData []byte, filename, caption string) (string, error) {
	resp, err := b.client.R().
		SetFileReader("document", filename, io.NopCloser(strings.NewReader(string(fileData)))).
		SetFormData(map[string]string{
			"chat_id":    chatID,
			"caption":    caption,
			"parse_mode": "HTML",
		}).
		Post("/sendDocument")
	if err != nil {
		return "", err
	}
	return resp.String(), nil
}

// SetWebhook sets the webhook URL.
func (b *BotAPI) SetWebhook(url string) (string, error) {
	return b.Call("setWebhook", map[string]interface{}{
		"url": url,
	})
}

// GetFilePath resolves a Telegram file_id to a server file path.
func (b *BotAPI) GetFilePath(fileID string) (string, error) {
	raw, err := b.Call("getFile", map[string]interface{}{
		"file_id": fileID,
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", fmt.Errorf("getFile parse error: %w", err)
	}
	if !payload.OK || payload.Result.FilePath == "" {
		return "", fmt.Errorf("getFile failed for %s", fileID)
	}
	return payload.Result.FilePath, nil
}

// DownloadFile downloads a file from Telegram's servers.
func (b *BotAPI) DownloadFile(filePath string) ([]byte, error) {
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.token, filePath)
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
