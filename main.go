package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"niverbot/announcer"
	"niverbot/bot"
	"niverbot/commands"
	"niverbot/config"
	"niverbot/dal"
	"niverbot/keepalive"
	"niverbot/messages"

	log "github.com/sirupsen/logrus"
)

const connectTimeout = 30 * time.Second

func initLogging(level log.Level) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	log.SetLevel(level)
}

func initDB(ctx context.Context, cfg dal.Config) dal.Store {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	store, err := dal.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	log.Println("Connected to database.")

	return store
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatal(err)
	}
	initLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := initDB(ctx, cfg.Database)
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("Failed to close database")
		}
	}()

	catalog, err := messages.Load(cfg.Language)
	if err != nil {
		log.Fatalf("Failed to load messages: %v", err)
	}

	service := commands.New(store, commands.Options{
		Location: cfg.Location,
		Cooldown: cfg.Cooldown,
	})

	birthdayBot, err := bot.New(cfg.Token, cfg.GuildID, service, catalog)
	if err != nil {
		log.Fatalf("Failed to start bot: %v", err)
	}
	defer birthdayBot.Shutdown()

	scheduler, err := announcer.New(store, birthdayBot, birthdayBot, announcer.Options{
		Schedule:      cfg.Schedule,
		RetryInterval: cfg.RetryInterval,
		Location:      cfg.Location,
		Roles:         birthdayBot,
	})
	if err != nil {
		log.Fatalf("Failed to create announcer: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.Run(ctx)
	}()

	if cfg.KeepaliveAddr != "" {
		go func() {
			if err := keepalive.Serve(ctx, cfg.KeepaliveAddr); err != nil {
				log.WithError(err).Error("Keep-alive server stopped")
			}
		}()
	}

	<-ctx.Done()
	<-done
}
