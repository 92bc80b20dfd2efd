package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papertrade/internal/auth"
	"papertrade/internal/config"
	"papertrade/internal/health"
	"papertrade/internal/httpserver"
	"papertrade/internal/ledger"
	"papertrade/internal/notify"
	"papertrade/internal/quotes"
	"papertrade/internal/store"
	"papertrade/internal/withdraw"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if cfg.UIDist != "" {
		if _, err := os.Stat(cfg.UIDist); err != nil {
			log.Fatal().Err(err).Msg("ui dist")
		}
	}
	ctx := context.Background()

	var st store.Store
	switch cfg.StoreBackend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DBDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("db pool")
		}
		defer pool.Close()
		pg := store.NewPGStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("db migrate")
		}
		st = pg
	default:
		st = store.NewFileStore(cfg.UsersFile)
	}

	fetcher := quotes.NewMexcFetcher(cfg.FuturesTickerURL, cfg.SpotTickerURL, cfg.QuoteTimeout)
	quoteSvc := quotes.NewService(fetcher, log)
	klines := quotes.NewKlineProxy(cfg.QuoteTimeout)
	quoteHandler := quotes.NewHandler(quoteSvc, klines)

	var senders []notify.Sender
	if cfg.SMTPHost != "" && cfg.AdminEmail != "" {
		senders = append(senders, notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, cfg.AdminEmail))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram sender")
		}
		senders = append(senders, tg)
	}
	notifier := notify.NewNotifier(senders, log)

	keys := store.NewFileKeyPool(cfg.KeysFile)
	authSvc := auth.NewService(st, keys, cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL)
	authHandler := auth.NewHandler(authSvc)

	ledgerSvc := ledger.NewService(st, quoteSvc, log)
	ledgerHandler := ledger.NewHandler(ledgerSvc, notifier)

	withdrawLog := store.NewFileWithdrawalLog(cfg.WithdrawalsFile)
	withdrawSvc := withdraw.NewService(withdrawLog)
	withdrawHandler := withdraw.NewHandler(withdrawSvc, notifier)

	healthHandler := health.NewHandler(st, quoteSvc, time.Now(), cfg.HTTPAddr, cfg.StoreBackend)
	wsHandler := httpserver.NewWSHandler(quoteSvc, cfg.WebSocketOrigin, 2*time.Second)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandler:     authHandler,
		LedgerHandler:   ledgerHandler,
		QuoteHandler:    quoteHandler,
		WithdrawHandler: withdrawHandler,
		HealthHandler:   healthHandler,
		AuthService:     authSvc,
		WSHandler:       wsHandler,
		UIDist:          cfg.UIDist,
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreBackend).Msg("server listening")
	if cfg.UIDist != "" {
		log.Info().Str("dir", cfg.UIDist).Msg("serving ui dist")
	}
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server")
	}
}
