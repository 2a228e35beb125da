// Registers the Telegram webhook for the bot. Run once per deployment:
//
//	TELEGRAM_BOT_TOKEN=... TELEGRAM_WEBHOOK_SECRET=... go run ./cmd/utils https://example.com/telegram/webhook
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	mongoRepo "servicelist-service/internal/interface/repository"
	"servicelist-service/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: set_webhook <webhook-url>")
		os.Exit(1)
	}
	webhookURL := os.Args[1]

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	secret := os.Getenv("TELEGRAM_WEBHOOK_SECRET")
	if botToken == "" || secret == "" {
		fmt.Fprintln(os.Stderr, "TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_SECRET are required")
		os.Exit(1)
	}

	baseURL := os.Getenv("TELEGRAM_API_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	log := logger.NewLogger()
	telegram := mongoRepo.NewTelegramRepository(baseURL, botToken, "", log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := telegram.SetWebhook(ctx, webhookURL, secret); err != nil {
		fmt.Fprintf(os.Stderr, "setWebhook failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Webhook registered: %s\n", webhookURL)
}
