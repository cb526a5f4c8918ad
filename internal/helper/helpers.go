package helper

import (
	"fmt"
	"log/slog"
	"sync"
)

// HelperRepository bundles the small cross-cutting bits handlers and
// workers need: email template data and supervised background tasks.
type HelperRepository struct {
	baseURL *string
	WG      *sync.WaitGroup
	logger  *slog.Logger
}

func New(baseURL *string, wg *sync.WaitGroup, logger *slog.Logger) *HelperRepository {
	return &HelperRepository{
		baseURL: baseURL,
		WG:      wg,
		logger:  logger,
	}
}

func (h *HelperRepository) NewEmailData() map[string]any {
	data := map[string]any{
		"BaseURL": h.baseURL,
	}

	return data
}

// BackgroundTask runs fn on its own goroutine with panic recovery. Used
// for fire-and-forget side effects (audit rows, notification emails)
// whose failure must never fail the request.
func (h *HelperRepository) BackgroundTask(fn func() error) {
	if h.WG != nil {
		h.WG.Add(1)
	}

	go func() {
		if h.WG != nil {
			defer h.WG.Done()
		}

		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("background task panic", "error", fmt.Errorf("%s", err))
			}
		}()

		if err := fn(); err != nil {
			h.logger.Error("background task failed", "error", err)
		}
	}()
}
