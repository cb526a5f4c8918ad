package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/askielabs/askie-api/internal/answer"
	"github.com/askielabs/askie-api/internal/context"
	"github.com/askielabs/askie-api/internal/errHandler"
	"github.com/askielabs/askie-api/internal/helper"
	"github.com/askielabs/askie-api/internal/mocks"
	"github.com/askielabs/askie-api/internal/models"
	"github.com/askielabs/askie-api/internal/money"
	"github.com/askielabs/askie-api/internal/repository"
	"github.com/askielabs/askie-api/internal/response"
	"github.com/askielabs/askie-api/internal/settlement"
)

// MockWalletRepo implements WalletRepository but only mocks the needed methods.
type MockWalletRepo struct {
	mock.Mock
}

func (m *MockWalletRepo) GetOrCreate(userID string) (*models.Wallet, error) {
	args := m.Called(userID)
	return args.Get(0).(*models.Wallet), args.Error(1)
}

func (m *MockWalletRepo) Debit(userID string, amount money.Cents, description string, stars int) (*models.Transaction, *models.Wallet, error) {
	args := m.Called(userID, amount, description, stars)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Transaction), args.Get(1).(*models.Wallet), args.Error(2)
}

func (m *MockWalletRepo) Credit(params *repository.CreditParams) (*models.Transaction, *models.Wallet, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Transaction), args.Get(1).(*models.Wallet), args.Error(2)
}

type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Insert(session *models.HomeworkSession) (*models.HomeworkSession, error) {
	args := m.Called(session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HomeworkSession), args.Error(1)
}

func (m *MockSessionRepo) GetAllByUserID(userID string, limit, offset int) ([]models.HomeworkSession, bool, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.HomeworkSession), args.Bool(1), args.Error(2)
}

func newTestErrHandler() (*errHandler.ErrorHandler, *helper.HelperRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var baseURL string = "http://localhost"
	var wg sync.WaitGroup
	help := helper.New(&baseURL, &wg, logger)

	return errHandler.New("", nil, logger, help), help
}

func newHomeworkTestHandler(wallets *MockWalletRepo, sessions *MockSessionRepo, generator *mocks.MockGenerator) *HomeworkHandler {
	errHandler, help := newTestErrHandler()

	engine := settlement.New(&settlement.Engine{
		Wallets: wallets,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	return NewHomeworkHandler(&HomeworkHandler{
		Engine:      engine,
		Generator:   generator,
		SessionRepo: sessions,
		Helper:      help,
		ErrHandler:  errHandler,
	})
}

func submitHomeworkRequest(t *testing.T, h *HomeworkHandler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/homework", bytes.NewReader(payload))
	req = context.ContextSetAuthenticatedUser(req, &context.AuthenticatedUser{ID: "user-1"})
	rec := httptest.NewRecorder()

	h.HandleSubmitHomework(rec, req)
	return rec
}

func TestHandleSubmitHomework_Success(t *testing.T) {
	mockWallets := new(MockWalletRepo)
	mockSessions := new(MockSessionRepo)
	mockGenerator := new(mocks.MockGenerator)

	trans := &models.Transaction{ID: "t-1", UserID: "user-1", Amount: money.Cents(-500)}
	wallet := &models.Wallet{ID: "w-1", UserID: "user-1", Balance: money.Cents(500)}

	mockWallets.On("Debit", "user-1", money.Cents(500), mock.Anything, 0).Return(trans, wallet, nil)
	mockGenerator.On("Generate", "What is 2+2?", "walkthrough", "").
		Return(&answer.Answer{Text: "4, because...", TimeEstimate: "2 min"}, nil)
	mockSessions.On("Insert", mock.Anything).
		Return(&models.HomeworkSession{ID: "s-1", UserID: "user-1"}, nil)

	h := newHomeworkTestHandler(mockWallets, mockSessions, mockGenerator)

	rec := submitHomeworkRequest(t, h, map[string]string{
		"question": "What is 2+2?",
		"tier":     "walkthrough",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var res response.Response[HomeworkResponseData]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Equal(t, "4, because...", res.Data.Answer)
	require.Equal(t, money.Cents(500), res.Data.NewBalance)
	require.Equal(t, "s-1", res.Data.SessionID)

	mockWallets.AssertExpectations(t)
	mockGenerator.AssertExpectations(t)
	mockSessions.AssertExpectations(t)
}

func TestHandleSubmitHomework_InsufficientFunds(t *testing.T) {
	mockWallets := new(MockWalletRepo)
	mockSessions := new(MockSessionRepo)
	mockGenerator := new(mocks.MockGenerator)

	mockWallets.On("Debit", "user-1", money.Cents(200), mock.Anything, 0).
		Return(nil, nil, repository.ErrInsufficientFunds)

	h := newHomeworkTestHandler(mockWallets, mockSessions, mockGenerator)

	rec := submitHomeworkRequest(t, h, map[string]string{
		"question": "What is 2+2?",
		"tier":     "hint",
	})

	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	// nothing was generated or recorded
	mockGenerator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	mockSessions.AssertNotCalled(t, "Insert", mock.Anything)
}

func TestHandleSubmitHomework_UnknownTier(t *testing.T) {
	mockWallets := new(MockWalletRepo)
	mockSessions := new(MockSessionRepo)
	mockGenerator := new(mocks.MockGenerator)

	h := newHomeworkTestHandler(mockWallets, mockSessions, mockGenerator)

	rec := submitHomeworkRequest(t, h, map[string]string{
		"question": "What is 2+2?",
		"tier":     "platinum",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	mockWallets.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleSubmitHomework_GeneratorFailureRefunds(t *testing.T) {
	mockWallets := new(MockWalletRepo)
	mockSessions := new(MockSessionRepo)
	mockGenerator := new(mocks.MockGenerator)

	trans := &models.Transaction{ID: "t-1", UserID: "user-1", Amount: money.Cents(-500)}
	debited := &models.Wallet{ID: "w-1", UserID: "user-1", Balance: money.Cents(0)}
	refunded := &models.Wallet{ID: "w-1", UserID: "user-1", Balance: money.Cents(500)}

	mockWallets.On("Debit", "user-1", money.Cents(500), mock.Anything, 0).Return(trans, debited, nil)
	mockGenerator.On("Generate", "What is 2+2?", "walkthrough", "").
		Return(nil, answer.ErrAnswerUnavailable)
	mockWallets.On("Credit", mock.MatchedBy(func(params *repository.CreditParams) bool {
		return params.Kind == models.TransactionKindRefund &&
			params.Amount == money.Cents(500) &&
			params.ExternalRef == "refund:t-1"
	})).Return(&models.Transaction{ID: "t-2"}, refunded, nil)

	h := newHomeworkTestHandler(mockWallets, mockSessions, mockGenerator)

	rec := submitHomeworkRequest(t, h, map[string]string{
		"question": "What is 2+2?",
		"tier":     "walkthrough",
	})

	require.Equal(t, http.StatusBadGateway, rec.Code)

	mockWallets.AssertExpectations(t)
	mockSessions.AssertNotCalled(t, "Insert", mock.Anything)
}

func TestHandleSubmitHomework_MissingQuestion(t *testing.T) {
	mockWallets := new(MockWalletRepo)
	mockSessions := new(MockSessionRepo)
	mockGenerator := new(mocks.MockGenerator)

	h := newHomeworkTestHandler(mockWallets, mockSessions, mockGenerator)

	rec := submitHomeworkRequest(t, h, map[string]string{
		"tier": "hint",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
