package intake

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onalog/server/pkg/domain/workout"
)

type fakeAppender struct {
	entries []workout.RawLogEntry
	err     error
}

func (a *fakeAppender) AppendRaw(ctx context.Context, entry workout.RawLogEntry) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

type fakeReplier struct {
	chatID int64
	text   string
	err    error
}

func (r *fakeReplier) Reply(ctx context.Context, chatID int64, text string) error {
	r.chatID = chatID
	r.text = text
	return r.err
}

func newTestServer(appender *fakeAppender, replier *fakeReplier) *Server {
	return &Server{
		Appender: appender,
		Replier:  replier,
		Now:      func() time.Time { return time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC) },
	}
}

func post(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/telegram", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestTextMessageIsAppendedVerbatim(t *testing.T) {
	appender := &fakeAppender{}
	replier := &fakeReplier{}
	srv := newTestServer(appender, replier)

	rec := post(t, srv.Router(), `{
		"update_id": 1,
		"message": {
			"message_id": 10,
			"from": {"id": 42},
			"chat": {"id": 42},
			"text": "bench 3x8 @60kg, felt heavy"
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, appender.entries, 1)
	e := appender.entries[0]
	assert.Equal(t, "bench 3x8 @60kg, felt heavy", e.RawText)
	assert.Equal(t, "42", e.UserID)
	assert.Equal(t, SourceTelegramText, e.Source)
	assert.Equal(t, "2026-02-01T10:00:00Z", e.Timestamp)

	assert.Equal(t, int64(42), replier.chatID)
	assert.Equal(t, "Logged ✅", replier.text)
}

func TestVoiceMessageRecordsMetadataOnly(t *testing.T) {
	appender := &fakeAppender{}
	replier := &fakeReplier{}
	srv := newTestServer(appender, replier)

	rec := post(t, srv.Router(), `{
		"update_id": 2,
		"message": {
			"message_id": 11,
			"from": {"id": 42},
			"chat": {"id": 42},
			"voice": {"duration": 23, "file_id": "AwACAgQ"}
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, appender.entries, 1)
	e := appender.entries[0]
	assert.Equal(t, "[VOICE] duration_sec=23 file_id=AwACAgQ", e.RawText)
	assert.Equal(t, SourceTelegramVoice, e.Source)
	assert.Equal(t, "Voice logged ✅", replier.text)
}

func TestAppendFailureStillAnswers200(t *testing.T) {
	appender := &fakeAppender{err: errors.New("sheet unreachable")}
	replier := &fakeReplier{}
	srv := newTestServer(appender, replier)

	rec := post(t, srv.Router(), `{
		"update_id": 3,
		"message": {
			"message_id": 12,
			"from": {"id": 42},
			"chat": {"id": 42},
			"text": "deadlift day"
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code, "Telegram must never be told to redeliver")
	assert.Contains(t, replier.text, "Failed ❌")
	assert.Contains(t, replier.text, "sheet unreachable")
}

func TestNonMessageUpdatesAreIgnored(t *testing.T) {
	appender := &fakeAppender{}
	srv := newTestServer(appender, &fakeReplier{})

	for _, body := range []string{
		`{"update_id": 4}`,
		`{"update_id": 5, "message": {"message_id": 13, "chat": {"id": 1}}}`,
		`not json at all`,
	} {
		rec := post(t, srv.Router(), body)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Empty(t, appender.entries)
}

func TestMissingSenderFallsBackToUnknown(t *testing.T) {
	appender := &fakeAppender{}
	srv := newTestServer(appender, &fakeReplier{})

	post(t, srv.Router(), `{
		"update_id": 6,
		"message": {"message_id": 14, "chat": {"id": 7}, "text": "run 5k"}
	}`)

	require.Len(t, appender.entries, 1)
	assert.Equal(t, "unknown", appender.entries[0].UserID)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeAppender{}, &fakeReplier{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestTelegramClientReply(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		requireJSON(t, r, &gotBody)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	client := NewTelegramClient("TOKEN123")
	client.BaseURL = ts.URL

	err := client.Reply(context.Background(), 42, "Logged ✅")
	require.NoError(t, err)
	assert.Equal(t, "/botTOKEN123/sendMessage", gotPath)
	assert.Equal(t, float64(42), gotBody["chat_id"])
	assert.Equal(t, "Logged ✅", gotBody["text"])
}

func TestTelegramClientReplyErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	client := NewTelegramClient("TOKEN123")
	client.BaseURL = ts.URL

	err := client.Reply(context.Background(), 42, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func requireJSON(t *testing.T, r *http.Request, out interface{}) {
	t.Helper()
	defer r.Body.Close()
	require.NoError(t, json.NewDecoder(r.Body).Decode(out))
}
