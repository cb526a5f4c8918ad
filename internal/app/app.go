package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/askielabs/askie-api/internal/answer"
	"github.com/askielabs/askie-api/internal/cache"
	"github.com/askielabs/askie-api/internal/config"
	"github.com/askielabs/askie-api/internal/env"
	"github.com/askielabs/askie-api/internal/errHandler"
	"github.com/askielabs/askie-api/internal/file"
	"github.com/askielabs/askie-api/internal/gateway"
	"github.com/askielabs/askie-api/internal/helper"
	"github.com/askielabs/askie-api/internal/money"
	"github.com/askielabs/askie-api/internal/repository"
	"github.com/askielabs/askie-api/internal/settlement"
	"github.com/askielabs/askie-api/internal/smtp"
	"github.com/askielabs/askie-api/internal/stream"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	ErrorHandler *errHandler.ErrorHandler
	Helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	Cache        *cache.Cache
	Gateway      *gateway.Gateway
	Answers      answer.Generator
	Engine       *settlement.Engine
	FileUploader *file.FileUploader
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/db")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")
	cfg.Jwt.Issuer = env.GetString("JWT_ISSUER", "https://id.askie.app")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "Askie <no_reply@askie.app>")

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")
	cfg.RedisDB = env.GetInt("REDIS_DB", 0)

	cfg.FileUploader.ApiKey = env.GetString("CLOUDINARY_API_KEY", "")
	cfg.FileUploader.CloudName = env.GetString("CLOUDINARY_CLOUD_NAME", "")
	cfg.FileUploader.ApiSecret = env.GetString("CLOUDINARY_API_SECRET", "")

	cfg.Payments.MinimumTopUp = money.Cents(env.GetInt("MINIMUM_TOPUP_CENTS", 1000))
	cfg.Payments.StaleWindow = env.GetDuration("PAYMENT_STALE_WINDOW", 30*time.Minute)

	cfg.Payments.Mpesa.BaseURL = env.GetString("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke")
	cfg.Payments.Mpesa.ConsumerKey = env.GetString("MPESA_CONSUMER_KEY", "")
	cfg.Payments.Mpesa.ConsumerSecret = env.GetString("MPESA_CONSUMER_SECRET", "")
	cfg.Payments.Mpesa.Passkey = env.GetString("MPESA_PASSKEY", "")
	cfg.Payments.Mpesa.ShortCode = env.GetString("MPESA_SHORT_CODE", "174379")

	cfg.Payments.MtnMomo.BaseURL = env.GetString("MOMO_BASE_URL", "https://sandbox.momodeveloper.mtn.com")
	cfg.Payments.MtnMomo.SubscriptionKey = env.GetString("MOMO_SUBSCRIPTION_KEY", "")
	cfg.Payments.MtnMomo.APIKey = env.GetString("MOMO_API_KEY", "")
	cfg.Payments.MtnMomo.TargetEnv = env.GetString("MOMO_TARGET_ENV", "sandbox")

	cfg.Payments.Ozow.BaseURL = env.GetString("OZOW_BASE_URL", "https://api.ozow.com")
	cfg.Payments.Ozow.SiteCode = env.GetString("OZOW_SITE_CODE", "")
	cfg.Payments.Ozow.PrivateKey = env.GetString("OZOW_PRIVATE_KEY", "")

	cfg.Answers.BaseURL = env.GetString("ANSWERS_BASE_URL", "http://localhost:5050")
	cfg.Answers.APIKey = env.GetString("ANSWERS_API_KEY", "")
	cfg.Answers.Timeout = env.GetDuration("ANSWERS_TIMEOUT", 60*time.Second)

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app := &Application{
		Config: cfg,
		DB:     db,
		Logger: logger,
		Mailer: mailer,
	}

	app.Helper = helper.New(&cfg.BaseURL, &app.WG, logger)
	app.ErrorHandler = errHandler.New(cfg.Notifications.Email, mailer, logger, app.Helper)
	app.Kafka = stream.New(cfg.KafkaServers)
	app.Cache = cache.New(cfg.RedisServer, cfg.RedisDB)
	app.Gateway = gateway.New(&cfg, logger)
	app.Answers = answer.NewClient(&cfg)
	app.FileUploader = file.New(cfg.FileUploader.CloudName, cfg.FileUploader.ApiKey, cfg.FileUploader.ApiSecret)

	app.Engine = settlement.New(&settlement.Engine{
		Wallets:      db.Wallet(),
		Transactions: db.Transaction(),
		Payments:     db.Payment(),
		Audit:        db.Audit(),
		Gateway:      app.Gateway,
		Cache:        app.Cache,
		Helper:       app.Helper,
		Logger:       logger,
		MinimumTopUp: cfg.Payments.MinimumTopUp,
		Mailer:       mailer,
		AlertEmail:   cfg.Notifications.Email,
	})

	return app, nil
}

// Close releases long-lived resources. Called once the server and the
// workers have drained.
func (app *Application) Close(ctx context.Context) error {
	if err := app.Cache.Close(); err != nil {
		app.Logger.Error("closing redis", "error", err)
	}
	return app.DB.Close()
}
