package config

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Env         string `env:"APP_ENV" default:"dev"`

	StripeAPIKey     string `env:"STRIPE_API_KEY"`
	StripeSuccessURL string `env:"STRIPE_SUCCESS_URL"`
	StripeCancelURL  string `env:"STRIPE_CANCEL_URL"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `env:"TELEGRAM_CHAT_ID"`

	// Overdue days are charged daily_fee * FineMultiplier.
	FineMultiplier int64 `env:"FINE_MULTIPLIER" default:"2"`

	SweepIntervalSec int `env:"SWEEP_INTERVAL_SEC" default:"600"`
}
