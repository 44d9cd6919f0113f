package resilience

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}
}

func TestCall_SuccessFirstTry(t *testing.T) {
	calls := 0
	v, err := Call(context.Background(), fastPolicy(), "op", func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestCall_RetriesTransient(t *testing.T) {
	calls := 0
	v, err := Call(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("busy"), http.StatusServiceUnavailable)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, calls)
}

func TestCall_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("always"), http.StatusTooManyRequests)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestCall_StopsOnPermanentError(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), fastPolicy(), "op", func(context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCall_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Call(ctx, Policy{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}, "op", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("busy"), 503)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2, JitterFraction: 0}
	p.MaxAttempts = 1
	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(2))
	assert.Equal(t, time.Second, p.Backoff(10))

	p.JitterFraction = 0.5
	for i := 0; i < 50; i++ {
		d := p.Backoff(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(NewTransientError(errors.New("x"), 0)))
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(io.ErrUnexpectedEOF))
	assert.True(t, IsTransient(errors.New("read tcp: i/o timeout")))
	assert.False(t, IsTransient(errors.New("invalid api key")))
}

func TestCheckStatus(t *testing.T) {
	resp := func(code int, body string) *http.Response {
		return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body))}
	}

	assert.NoError(t, CheckStatus("naver", resp(http.StatusOK, "")))

	err := CheckStatus("naver", resp(http.StatusTooManyRequests, `{"errorCode":"012"}`))
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, err.Error(), "012")

	err = CheckStatus("naver", resp(http.StatusUnauthorized, "denied"))
	require.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Equal(t, "naver: status 401: denied", err.Error())
}
