package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"

	"github.com/ponram06/WhatsappBulksender/internal/api"
	"github.com/ponram06/WhatsappBulksender/internal/config"
	"github.com/ponram06/WhatsappBulksender/internal/contacts"
	"github.com/ponram06/WhatsappBulksender/internal/dispatch"
	"github.com/ponram06/WhatsappBulksender/internal/driver"
	"github.com/ponram06/WhatsappBulksender/internal/history"
	"github.com/ponram06/WhatsappBulksender/internal/ledger"
	"github.com/ponram06/WhatsappBulksender/internal/protocol"
)

func main() {
	var (
		contactsPath = flag.String("contacts", "contacts.csv", "path to contact book (.csv or .xlsx) with columns: Phone[, Name]")
		configPath   = flag.String("config", "config.json", "path to config file")
	)
	flag.Parse()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	list, err := contacts.Load(*contactsPath, cfg.DefaultCountryCode)
	if err != nil {
		log.Fatal().Err(err).Msg("load contacts")
	}
	if len(list) == 0 {
		log.Info().Msg("no usable contacts found, ensure the contact book has a 'Phone' column")
		return
	}

	if cfg.DryRun {
		dispatch.DryRun(list, cfg.BatchLimit, log.Logger)
		return
	}

	var store history.Store
	if cfg.HistoryDBPath != "" {
		dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", cfg.HistoryDBPath)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("open history db")
		}
		defer db.Close()
		db.SetMaxOpenConns(1) // SQLite single writer
		if err := history.EnsureSchema(db); err != nil {
			log.Fatal().Err(err).Msg("ensure history schema")
		}
		store = history.NewStore(db)
	}

	var limiter *rate.Limiter
	if cfg.MaxAttemptsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxAttemptsPerMinute)), 1)
	}

	drv := driver.NewClient(cfg.DriverURL, driver.WithLogger(log.Logger))
	defer func() {
		if err := drv.Close(); err != nil {
			log.Warn().Err(err).Msg("close driver session")
		}
	}()

	sender := protocol.New(drv, protocol.Options{
		ComposerTimeout: cfg.ComposerTimeout(),
		MediaTimeout:    cfg.MediaTimeout(),
		Logger:          log.Logger,
	})

	disp := dispatch.New(sender, ledger.New(cfg.LedgerPath), store, dispatch.Options{
		MessageText:    cfg.MessageText,
		MediaPath:      cfg.MediaPath,
		BatchLimit:     cfg.BatchLimit,
		SleepMin:       cfg.SleepMinSeconds,
		SleepMax:       cfg.SleepMaxSeconds,
		LongPauseEvery: cfg.LongPauseEvery,
		LongPauseMin:   cfg.LongPauseRange[0],
		LongPauseMax:   cfg.LongPauseRange[1],
		Limiter:        limiter,
		Logger:         log.Logger,
	})

	if cfg.StatusAddr != "" {
		srv := &http.Server{Addr: cfg.StatusAddr, Handler: api.NewServer(disp, store)}
		go func() {
			log.Info().Str("addr", cfg.StatusAddr).Msg("status server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("status server")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	if cfg.StartCron != "" {
		next, err := config.NextStart(cfg.StartCron, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("start_cron")
		}
		log.Info().Time("next", next).Msg("waiting for send window")
		time.Sleep(time.Until(next))
	}

	ctx := context.Background()
	if err := drv.Navigate(ctx, protocol.HomeURL); err != nil {
		log.Fatal().Err(err).Msg("open chat UI")
	}
	fmt.Println("Scan the QR code (first run) and wait until your chats are visible. Then press ENTER here to continue...")
	if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
		log.Fatal().Err(err).Msg("login confirmation")
	}

	summary := disp.Run(ctx, list)
	log.Info().
		Str("run_id", summary.ID).
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Str("stop_reason", string(summary.StopReason)).
		Str("ledger", cfg.LedgerPath).
		Msg("done")
}
