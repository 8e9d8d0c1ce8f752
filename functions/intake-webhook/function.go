// Package intakewebhook is the HTTP Cloud Function fronting the Telegram
// webhook. It only appends raw entries; parsing happens later in the
// scheduled pipeline pass.
package intakewebhook

import (
	"context"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/onalog/server/pkg/bootstrap"
	"github.com/onalog/server/pkg/intake"
)

var (
	router     http.Handler
	routerOnce sync.Once
	routerErr  error
)

func init() {
	functions.HTTP("IntakeWebhook", IntakeWebhook)
}

func initRouter(ctx context.Context) (http.Handler, error) {
	routerOnce.Do(func() {
		svc, err := bootstrap.NewService(ctx)
		if err != nil {
			routerErr = err
			return
		}

		srv := &intake.Server{
			Appender: svc.Sheets,
			Logger:   bootstrap.NewLogger("intake-webhook"),
		}
		if token := svc.Config.TelegramBotToken; token != "" {
			srv.Replier = intake.NewTelegramClient(token)
		}
		router = srv.Router()
	})
	return router, routerErr
}

// IntakeWebhook is the HTTP entry point.
func IntakeWebhook(w http.ResponseWriter, r *http.Request) {
	h, err := initRouter(r.Context())
	if err != nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	h.ServeHTTP(w, r)
}
