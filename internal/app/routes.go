package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askielabs/askie-api/internal/handler"
	"github.com/askielabs/askie-api/internal/middleware"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	middlewareRepo := middleware.New(app.ErrorHandler, app.Logger, &app.Config)

	healthHandler := handler.NewHealthCheckHandler(app.ErrorHandler)
	homeworkHandler := handler.NewHomeworkHandler(&handler.HomeworkHandler{
		Engine:      app.Engine,
		Generator:   app.Answers,
		SessionRepo: app.DB.Session(),
		Helper:      app.Helper,
		ErrHandler:  app.ErrorHandler,
	})
	walletHandler := handler.NewWalletHandler(&handler.WalletHandler{
		Engine:          app.Engine,
		TransactionRepo: app.DB.Transaction(),
		ErrHandler:      app.ErrorHandler,
	})
	sessionHandler := handler.NewSessionHandler(&handler.SessionHandler{
		SessionRepo: app.DB.Session(),
		ErrHandler:  app.ErrorHandler,
	})
	topUpHandler := handler.NewTopUpHandler(&handler.TopUpHandler{
		Engine:     app.Engine,
		ErrHandler: app.ErrorHandler,
	})
	webhookHandler := handler.NewWebhookHandler(&handler.WebhookHandler{
		Gateway:     app.Gateway,
		PaymentRepo: app.DB.Payment(),
		Kafka:       app.Kafka,
		ErrHandler:  app.ErrorHandler,
	})
	uploadHandler := handler.NewUploadHandler(&handler.UploadHandler{
		Uploader:   app.FileUploader,
		ErrHandler: app.ErrorHandler,
	})

	mux.HandleFunc("GET /status", healthHandler.HandleHealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// provider callbacks authenticate by payload, not bearer token
	mux.HandleFunc("POST /webhooks/payments/{provider}", webhookHandler.HandleProviderWebhook)

	mux.HandleFunc("GET /tiers", homeworkHandler.HandleListTiers)

	authenticated := func(next http.HandlerFunc) http.Handler {
		return middlewareRepo.RequireAuthenticatedUser(next)
	}

	mux.Handle("POST /homework", authenticated(homeworkHandler.HandleSubmitHomework))
	mux.Handle("GET /sessions", authenticated(sessionHandler.HandleListSessions))

	mux.Handle("GET /wallet", authenticated(walletHandler.HandleWalletDetails))
	mux.Handle("GET /wallet/transactions", authenticated(walletHandler.HandleWalletTransactions))
	mux.Handle("GET /wallet/reconcile", authenticated(walletHandler.HandleWalletReconcile))

	mux.Handle("POST /top-ups", authenticated(topUpHandler.HandleInitiateTopUp))
	mux.Handle("POST /top-ups/{id}/cancel", authenticated(topUpHandler.HandleCancelTopUp))

	mux.Handle("POST /uploads/question-image", authenticated(uploadHandler.HandleUploadQuestionImage))

	return middlewareRepo.LogAccess(middlewareRepo.RecoverPanic(middlewareRepo.Authenticate(mux)))
}
