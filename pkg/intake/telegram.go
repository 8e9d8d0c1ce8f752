package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/onalog/server/pkg/domain/workout"
	httputil "github.com/onalog/server/pkg/infrastructure/http"
)

const (
	SourceTelegramText  = "telegram_text"
	SourceTelegramVoice = "telegram_voice"
)

// Update is the subset of a Telegram webhook update the intake cares about.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
	Voice     *Voice `json:"voice"`
}

type User struct {
	ID int64 `json:"id"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Voice struct {
	Duration int    `json:"duration"`
	FileID   string `json:"file_id"`
}

// handleTelegram appends the incoming message as a raw entry and acknowledges
// in-chat. It always answers 200: returning an error status makes Telegram
// redeliver the same update, and a failed append is already reported to the
// user in the reply.
func (s *Server) handleTelegram(w http.ResponseWriter, r *http.Request) {
	logger := s.logger()

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		logger.Warn("Ignoring undecodable update", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	msg := update.Message
	if msg == nil || (msg.Text == "" && msg.Voice == nil) {
		w.WriteHeader(http.StatusOK)
		return
	}

	entry := workout.RawLogEntry{
		Timestamp: s.now().UTC().Format(time.RFC3339),
		UserID:    "unknown",
	}
	if msg.From != nil {
		entry.UserID = strconv.FormatInt(msg.From.ID, 10)
	}

	ack := "Logged ✅"
	if msg.Voice != nil {
		// Voice notes are not transcribed; the metadata is enough to show the
		// message came through and to find the file later.
		entry.RawText = fmt.Sprintf("[VOICE] duration_sec=%d file_id=%s", msg.Voice.Duration, msg.Voice.FileID)
		entry.Source = SourceTelegramVoice
		ack = "Voice logged ✅"
	} else {
		entry.RawText = msg.Text
		entry.Source = SourceTelegramText
	}

	if err := s.Appender.AppendRaw(r.Context(), entry); err != nil {
		logger.Error("Failed to append raw entry", "user_id", entry.UserID, "source", entry.Source, "error", err)
		ack = fmt.Sprintf("Failed ❌ (%s)", err)
	} else {
		logger.Info("Raw entry logged", "user_id", entry.UserID, "source", entry.Source)
	}

	if s.Replier != nil {
		if err := s.Replier.Reply(r.Context(), msg.Chat.ID, ack); err != nil {
			logger.Warn("Failed to send reply", "chat_id", msg.Chat.ID, "error", err)
		}
	}

	w.WriteHeader(http.StatusOK)
}

// TelegramClient replies via the Bot API sendMessage method.
type TelegramClient struct {
	Token      string
	HTTPClient *http.Client
	BaseURL    string // overridable for tests
}

func NewTelegramClient(token string) *TelegramClient {
	return &TelegramClient{
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		BaseURL:    "https://api.telegram.org",
	}
}

func (c *TelegramClient) Reply(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.BaseURL, c.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return httputil.WrapResponseError(resp, "telegram sendMessage failed")
	}
	return nil
}
