package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/vetcareplus/vetcare-api/internal/config"
	"github.com/vetcareplus/vetcare-api/internal/db"
	"github.com/vetcareplus/vetcare-api/internal/notify"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("notify-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running notify worker in env=%s interval=%s", cfg.Env, cfg.NotifyInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	var sender notify.EmailSender = notify.StubEmailSender{}
	if cfg.MailAPIKey != "" {
		sender = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.MailAPIKey,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		})
	} else {
		log.Println("no mail API key set, logging notifications instead of sending")
	}

	outbox := notify.NewOutbox(pgPool)
	dispatcher := notify.NewDispatcher(pgPool, outbox, sender, cfg.NotifyTimeout, cfg.NotifyAttempts, nil)

	// Drain once at startup
	runOnce(rootCtx, dispatcher)

	ticker := time.NewTicker(cfg.NotifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping notify worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, dispatcher)
		}
	}
}

func runOnce(ctx context.Context, d *notify.Dispatcher) {
	runCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	if err := d.DeliverDue(runCtx); err != nil {
		log.Printf("delivery run error: %v", err)
		return
	}
	log.Printf("delivery run complete in %s", time.Since(start))
}
