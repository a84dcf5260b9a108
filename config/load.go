package config

import (
	"log/slog"
	"os"
	"strconv"
)

func Load() App {
	cfg := App{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),
		JWTSecret:   getenv("JWT_SECRET", "local_dev_secret"),
		Env:         getenv("APP_ENV", "dev"),

		StripeAPIKey:     os.Getenv("STRIPE_API_KEY"),
		StripeSuccessURL: getenv("STRIPE_SUCCESS_URL", "http://localhost:8080/v1/payments/success"),
		StripeCancelURL:  getenv("STRIPE_CANCEL_URL", "http://localhost:8080/v1/payments/cancel"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		FineMultiplier:   getenvInt64("FINE_MULTIPLIER", 2),
		SweepIntervalSec: int(getenvInt64("SWEEP_INTERVAL_SEC", 600)),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt64(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("bad integer env, using default", "key", k, "value", v)
		return def
	}
	return n
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
