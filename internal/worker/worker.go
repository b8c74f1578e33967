/*
Package worker implements the daily loop (spec §4.13): once every 24 hours,
resolve "today" and run the time-based accrual engine, the carryover engine,
and the expiration engine in that order, each in its own transaction.
Unrecoverable errors are logged and the loop continues - a bad tick never
takes the process down.

Grounded on the teacher's cmd/server/main.go graceful-loop pattern and
generic/engine_test.go's expectations about per-engine result counts.
*/
package worker

import (
	"context"
	"log"
	"time"

	"github.com/dayledger/pto/internal/domain"
	"github.com/dayledger/pto/internal/service/accrualservice"
	"github.com/dayledger/pto/internal/service/carryoverservice"
	"github.com/dayledger/pto/internal/service/expirationservice"
)

type Worker struct {
	Accrual    *accrualservice.Service
	Carryover  *carryoverservice.Service
	Expiration *expirationservice.Service
	Interval   time.Duration
}

func New(accrual *accrualservice.Service, carryover *carryoverservice.Service, expiration *expirationservice.Service, interval time.Duration) *Worker {
	return &Worker{Accrual: accrual, Carryover: carryover, Expiration: expiration, Interval: interval}
}

// Run blocks, ticking once immediately and then every w.Interval, until ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.tick(ctx)
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[worker] shutting down")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	today := domain.CivilDateOf(time.Now().UTC(), time.UTC)
	log.Printf("[worker] tick target_date=%s", today.String())

	accrualRes, err := w.Accrual.RunTimeBased(ctx, today, nil)
	if err != nil {
		log.Printf("[worker] accrual run failed: %v", err)
	} else {
		log.Printf("[worker] accrual processed=%d accrued=%d skipped=%d errors=%d", accrualRes.Processed, accrualRes.Accrued, accrualRes.Skipped, accrualRes.Errors)
	}

	carryoverRes, err := w.Carryover.Run(ctx, today, nil)
	if err != nil {
		log.Printf("[worker] carryover run failed: %v", err)
	} else if carryoverRes.Processed > 0 {
		log.Printf("[worker] carryover processed=%d carried=%d skipped=%d errors=%d", carryoverRes.Processed, carryoverRes.Carried, carryoverRes.Skipped, carryoverRes.Errors)
	}

	expirationRes, err := w.Expiration.Run(ctx, today, nil)
	if err != nil {
		log.Printf("[worker] expiration run failed: %v", err)
	} else if expirationRes.Processed > 0 {
		log.Printf("[worker] expiration processed=%d expired=%d errors=%d", expirationRes.Processed, expirationRes.Expired, expirationRes.Errors)
	}
}
