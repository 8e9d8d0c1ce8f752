package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/onalog/server/pkg/bootstrap"
	"github.com/onalog/server/pkg/intake"
	"github.com/onalog/server/pkg/sheets"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Telegram intake webhook",
	Long: `Serve the intake webhook locally. Incoming messages are appended to
the raw-log sheet verbatim; replies are sent when TELEGRAM_BOT_TOKEN is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	bootstrap.InitLogger()

	srv := &intake.Server{
		Appender: sheets.NewClient(cfg.SheetWebAppURL, cfg.SheetSecret),
		Logger:   bootstrap.NewLogger("intake"),
	}
	if cfg.TelegramBotToken != "" {
		srv.Replier = intake.NewTelegramClient(cfg.TelegramBotToken)
	}

	addr := fmt.Sprintf(":%d", servePort)
	fmt.Println("Intake listening on", addr)
	return http.ListenAndServe(addr, srv.Router())
}
