package nets

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// State is the terminal (or in-flight) outcome of a polling session.
type State string

const (
	StateIssued    State = "ISSUED"
	StatePolling   State = "POLLING"
	StateConfirmed State = "CONFIRMED"
	StateFailed    State = "FAILED"
	StateTimedOut  State = "TIMED_OUT"
	StateErrored   State = "ERRORED"
	StateCancelled State = "CANCELLED"
)

// Querier is the slice of the provider client the poller needs.
type Querier interface {
	Query(ctx context.Context, retrievalRef string, frontendTimeout int) (*Response, error)
}

// Event payloads pushed to the status stream.
type SuccessEvent struct {
	Success bool `json:"success"`
}

type FailEvent struct {
	Fail  bool   `json:"fail"`
	Error string `json:"error,omitempty"`
	Data
}

type ErrorEvent struct {
	Error string `json:"error"`
}

// Poller repeatedly queries a pending QR payment until a terminal state is
// reached: one query per interval, at most maxAttempts attempts. The attempt
// that exhausts the budget is sent with the frontend-timeout flag raised, so
// the provider gets one final chance to report an outcome before the session
// times out. A transport error ends the session immediately without retry,
// and a cancelled context (client disconnect) stops all provider calls.
type Poller struct {
	querier     Querier
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
}

func NewPoller(querier Querier, interval time.Duration, maxAttempts int, logger *zap.Logger) *Poller {
	return &Poller{
		querier:     querier,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Poll drives the session for one retrieval reference, invoking emit with
// each event payload (the raw provider response, then a terminal success /
// fail / error event). It returns the terminal state.
func (p *Poller) Poll(ctx context.Context, retrievalRef string, emit func(v interface{})) State {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	attempts := 0
	frontendTimeout := 0

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("payment status stream cancelled",
				zap.String("txn_retrieval_ref", retrievalRef),
				zap.Int("attempts", attempts))
			return StateCancelled
		case <-ticker.C:
		}

		attempts++
		lastAttempt := attempts >= p.maxAttempts
		if lastAttempt {
			frontendTimeout = 1
		}

		resp, err := p.querier.Query(ctx, retrievalRef, frontendTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return StateCancelled
			}
			p.logger.Error("payment status query failed",
				zap.String("txn_retrieval_ref", retrievalRef),
				zap.Error(err))
			emit(ErrorEvent{Error: err.Error()})
			return StateErrored
		}

		emit(resp)

		data := resp.Result.Data
		switch {
		case data.ResponseCode == "00" && data.TxnStatus == 1:
			emit(SuccessEvent{Success: true})
			return StateConfirmed
		case frontendTimeout == 1 && (data.ResponseCode != "00" || data.TxnStatus == 2):
			emit(FailEvent{Fail: true, Data: data})
			return StateFailed
		}

		if lastAttempt {
			emit(FailEvent{Fail: true, Error: "Timeout"})
			return StateTimedOut
		}
	}
}
