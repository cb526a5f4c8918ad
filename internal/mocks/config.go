package mocks

import (
	"time"

	"github.com/askielabs/askie-api/internal/config"
	"github.com/askielabs/askie-api/internal/money"
)

func NewMockConfig() *config.Config {
	cfg := &config.Config{
		BaseURL:      "http://localhost",
		HttpPort:     8080,
		RedisServer:  "localhost:6379",
		KafkaServers: "localhost:9092",
	}

	cfg.Db.Dsn = "mock_dsn"
	cfg.Db.Automigrate = false

	cfg.Jwt.SecretKey = "test_secret"
	cfg.Jwt.Issuer = "http://localhost"

	cfg.Notifications.Email = "ops@example.com"

	cfg.Smtp.Host = "smtp.example.com"
	cfg.Smtp.Port = 587
	cfg.Smtp.Username = "user@example.com"
	cfg.Smtp.Password = "password"
	cfg.Smtp.From = "no-reply@example.com"

	cfg.Payments.MinimumTopUp = money.FromRand(10)
	cfg.Payments.StaleWindow = 30 * time.Minute

	cfg.Payments.Mpesa.BaseURL = "http://localhost"
	cfg.Payments.Mpesa.ShortCode = "174379"
	cfg.Payments.MtnMomo.BaseURL = "http://localhost"
	cfg.Payments.MtnMomo.TargetEnv = "sandbox"
	cfg.Payments.Ozow.BaseURL = "http://localhost"

	cfg.Answers.BaseURL = "http://localhost"
	cfg.Answers.Timeout = time.Second

	return cfg
}
