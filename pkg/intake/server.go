// Package intake receives raw workout logs from Telegram and appends them to
// the raw-log sheet untouched. Intake never parses; the pipeline picks the
// entries up on its next pass.
package intake

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/onalog/server/pkg/domain/workout"
)

// RawAppender writes one raw entry to the store. The sheets client satisfies
// it.
type RawAppender interface {
	AppendRaw(ctx context.Context, entry workout.RawLogEntry) error
}

// Replier sends the user-facing acknowledgment back to the chat.
type Replier interface {
	Reply(ctx context.Context, chatID int64, text string) error
}

type Server struct {
	Appender RawAppender
	Replier  Replier
	Logger   *slog.Logger

	// Now is injectable for tests; entries are stamped at receipt time, not
	// from the Telegram message date.
	Now func() time.Time
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Post("/webhook/telegram", s.handleTelegram)

	return r
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
