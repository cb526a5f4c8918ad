package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/askielabs/askie-api/internal/app"
	"github.com/askielabs/askie-api/internal/version"
	"github.com/askielabs/askie-api/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := run(logger)
	if err != nil {
		trace := string(debug.Stack())
		logger.Error(err.Error(), "trace", trace)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	showVersion := flag.Bool("version", false, "display version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s\n", version.Get())
		return nil
	}

	application, err := app.NewApplication(logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer application.Close(ctx)

	wk := worker.New(&worker.Worker{
		KafkaStream:       application.Kafka,
		Engine:            application.Engine,
		Mailer:            application.Mailer,
		Helper:            application.Helper,
		Logger:            logger,
		Ctx:               ctx,
		NotificationEmail: application.Config.Notifications.Email,
		StaleWindow:       application.Config.Payments.StaleWindow,
	})

	go wk.ConfirmWorker()
	go wk.NotifyWorker()
	go wk.SweepWorker()

	return application.ServeHTTP()
}
