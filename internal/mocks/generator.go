package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/askielabs/askie-api/internal/answer"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, question, tier, imageURL string) (*answer.Answer, error) {
	args := m.Called(question, tier, imageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*answer.Answer), args.Error(1)
}
