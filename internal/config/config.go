package config

import (
	"time"

	"github.com/askielabs/askie-api/internal/money"
)

type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Passkey        string
	ShortCode      string
}

type MtnMomoConfig struct {
	BaseURL         string
	SubscriptionKey string
	APIKey          string
	TargetEnv       string
}

type OzowConfig struct {
	BaseURL    string
	SiteCode   string
	PrivateKey string
}

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	Jwt struct {
		SecretKey string
		Issuer    string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	RedisServer  string
	RedisDB      int
	KafkaServers string
	FileUploader struct {
		CloudName string
		ApiKey    string
		ApiSecret string
	}
	Payments struct {
		MinimumTopUp money.Cents
		StaleWindow  time.Duration
		Mpesa        MpesaConfig
		MtnMomo      MtnMomoConfig
		Ozow         OzowConfig
	}
	Answers struct {
		BaseURL string
		APIKey  string
		Timeout time.Duration
	}
}
