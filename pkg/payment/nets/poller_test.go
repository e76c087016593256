package nets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// scriptedQuerier returns one canned response per call, in order.
type scriptedQuerier struct {
	responses []queryResult
	calls     []int
}

type queryResult struct {
	resp *Response
	err  error
}

func (q *scriptedQuerier) Query(ctx context.Context, retrievalRef string, frontendTimeout int) (*Response, error) {
	q.calls = append(q.calls, frontendTimeout)
	idx := len(q.calls) - 1
	if idx >= len(q.responses) {
		idx = len(q.responses) - 1
	}
	r := q.responses[idx]
	return r.resp, r.err
}

func statusResponse(code string, status int) *Response {
	resp := &Response{}
	resp.Result.Data = Data{ResponseCode: code, TxnStatus: status}
	return resp
}

func newTestPoller(q Querier, maxAttempts int) *Poller {
	return NewPoller(q, time.Millisecond, maxAttempts, zap.NewNop())
}

func TestPoller_ConfirmedAfterPending(t *testing.T) {
	q := &scriptedQuerier{responses: []queryResult{
		{resp: statusResponse("09", 0)},
		{resp: statusResponse("09", 0)},
		{resp: statusResponse("00", 1)},
	}}

	var events []interface{}
	state := newTestPoller(q, 10).Poll(context.Background(), "REF123", func(v interface{}) {
		events = append(events, v)
	})

	assert.Equal(t, StateConfirmed, state)
	assert.Len(t, q.calls, 3)
	// Well under the attempt budget, so no query carries the timeout flag.
	assert.Equal(t, []int{0, 0, 0}, q.calls)

	last := events[len(events)-1]
	assert.Equal(t, SuccessEvent{Success: true}, last)
}

func TestPoller_FinalAttemptCarriesTimeoutFlag(t *testing.T) {
	q := &scriptedQuerier{responses: []queryResult{
		{resp: statusResponse("09", 0)},
	}}

	var events []interface{}
	state := newTestPoller(q, 3).Poll(context.Background(), "REF123", func(v interface{}) {
		events = append(events, v)
	})

	assert.Equal(t, StateFailed, state)
	assert.Equal(t, []int{0, 0, 1}, q.calls)

	last, ok := events[len(events)-1].(FailEvent)
	assert.True(t, ok)
	assert.True(t, last.Fail)
}

func TestPoller_ConfirmedOnFlaggedFinalAttempt(t *testing.T) {
	q := &scriptedQuerier{responses: []queryResult{
		{resp: statusResponse("09", 0)},
		{resp: statusResponse("00", 1)},
	}}

	state := newTestPoller(q, 2).Poll(context.Background(), "REF123", func(v interface{}) {})

	// The flagged final query may still confirm the payment.
	assert.Equal(t, StateConfirmed, state)
	assert.Equal(t, []int{0, 1}, q.calls)
}

func TestPoller_PaymentFailedOnFinalAttempt(t *testing.T) {
	q := &scriptedQuerier{responses: []queryResult{
		{resp: statusResponse("00", 2)},
	}}

	// txn_status 2 before the budget runs out keeps polling; only the
	// flagged attempt turns it into a terminal failure.
	state := newTestPoller(q, 2).Poll(context.Background(), "REF123", func(v interface{}) {})
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, []int{0, 1}, q.calls)
}

func TestPoller_TransportErrorEndsSession(t *testing.T) {
	q := &scriptedQuerier{responses: []queryResult{
		{err: errors.New("connection refused")},
	}}

	var events []interface{}
	state := newTestPoller(q, 10).Poll(context.Background(), "REF123", func(v interface{}) {
		events = append(events, v)
	})

	assert.Equal(t, StateErrored, state)
	assert.Len(t, q.calls, 1)
	assert.Equal(t, ErrorEvent{Error: "connection refused"}, events[0])
}

func TestPoller_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := &scriptedQuerier{responses: []queryResult{
		{resp: statusResponse("09", 0)},
	}}
	state := newTestPoller(q, 10).Poll(ctx, "REF123", func(v interface{}) {})

	assert.Equal(t, StateCancelled, state)
	assert.Empty(t, q.calls)
}
