package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	WebSocketOrigin string
	UIDist          string

	StoreBackend    string // file | postgres
	DBDSN           string
	UsersFile       string
	KeysFile        string
	WithdrawalsFile string

	FuturesTickerURL string
	SpotTickerURL    string
	QuoteTimeout     time.Duration

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	MailFrom   string
	AdminEmail string

	TelegramBotToken string
	TelegramChatID   int64
}

func Load() (Config, error) {
	var c Config
	var missing []string

	c.HTTPAddr = getenv("HTTP_ADDR", ":3000")
	c.JWTIssuer = getenv("JWT_ISSUER", "papertrade")
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	ttl := getenv("JWT_TTL", "1h")
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return c, errors.New("invalid JWT_TTL")
	}
	c.JWTTTL = d
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	c.UIDist = os.Getenv("UI_DIST")

	c.StoreBackend = strings.ToLower(getenv("STORE_BACKEND", "file"))
	if c.StoreBackend != "file" && c.StoreBackend != "postgres" {
		return c, errors.New("invalid STORE_BACKEND: use file or postgres")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.StoreBackend == "postgres" && c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.UsersFile = getenv("USERS_FILE", "users.json")
	c.KeysFile = getenv("KEYS_FILE", "keys.json")
	c.WithdrawalsFile = getenv("WITHDRAWALS_FILE", "withdrawal_requests.json")

	c.FuturesTickerURL = getenv("FUTURES_TICKER_URL", "https://contract.mexc.com/api/v1/contract/ticker")
	c.SpotTickerURL = getenv("SPOT_TICKER_URL", "https://www.mexc.com/open/api/v2/market/ticker")
	timeout := getenv("QUOTE_TIMEOUT", "5s")
	qt, err := time.ParseDuration(timeout)
	if err != nil {
		return c, errors.New("invalid QUOTE_TIMEOUT")
	}
	c.QuoteTimeout = qt

	c.SMTPHost = os.Getenv("SMTP_HOST")
	port := getenv("SMTP_PORT", "587")
	p, err := strconv.Atoi(port)
	if err != nil {
		return c, errors.New("invalid SMTP_PORT")
	}
	c.SMTPPort = p
	c.SMTPUser = os.Getenv("SMTP_USER")
	c.SMTPPass = os.Getenv("SMTP_PASS")
	c.MailFrom = getenv("MAIL_FROM", c.SMTPUser)
	c.AdminEmail = os.Getenv("ADMIN_EMAIL")

	c.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	chatRaw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	if chatRaw != "" {
		chatID, err := strconv.ParseInt(chatRaw, 10, 64)
		if err != nil {
			return c, errors.New("invalid TELEGRAM_CHAT_ID")
		}
		c.TelegramChatID = chatID
	}

	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
