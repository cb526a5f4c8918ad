package worker

import (
	"log"
	"time"
)

// SweepWorker periodically fails payments that never received a
// provider confirmation, so a user who abandoned an STK prompt is not
// stuck with a pending top-up forever.
func (wk *Worker) SweepWorker() {
	ticker := time.NewTicker(wk.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("SweepWorker received cancellation signal, shutting down...")
			return
		case <-ticker.C:
			swept, err := wk.Engine.SweepStalePayments(wk.Ctx, wk.StaleWindow)
			if err != nil {
				log.Printf("Error sweeping stale payments: %v", err)
				continue
			}
			if swept > 0 {
				log.Printf("Swept %d stale payments", swept)
			}
		}
	}
}
