package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/genai"

	"statuscomms/internal/incident"
	"statuscomms/internal/metrics"
)

// RetryPolicy bounds every call: each attempt gets Timeout, and transient
// failures are retried up to MaxAttempts with exponential backoff.
type RetryPolicy struct {
	Timeout     time.Duration
	MaxAttempts int
	Backoff     gax.Backoff
	Logger      *slog.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Do calls fn until it succeeds, fails permanently, or attempts run out.
// Cancellation of ctx stops immediately and discards partial results.
func (p RetryPolicy) Do(ctx context.Context, shape Shape, fn func(context.Context) (Response, error)) (Response, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = gax.Sleep
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bo := p.Backoff

	for attempt := 1; ; attempt++ {
		actx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := fn(actx)
		cancel()
		if err == nil {
			metrics.ServiceCalls.WithLabelValues(string(shape), "ok").Inc()
			resp.Attempts = attempt
			return resp, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			metrics.ServiceCalls.WithLabelValues(string(shape), "canceled").Inc()
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return Response{}, &incident.ServiceTimeoutError{Shape: string(shape), Attempts: attempt, Err: ctxErr}
			}
			return Response{}, fmt.Errorf("%s call: %w", shape, ctxErr)
		}

		timedOut := errors.Is(err, context.DeadlineExceeded)
		if timedOut {
			metrics.ServiceCalls.WithLabelValues(string(shape), "timeout").Inc()
		} else {
			metrics.ServiceCalls.WithLabelValues(string(shape), "error").Inc()
		}

		if !Transient(err) || attempt >= maxAttempts {
			if timedOut {
				return Response{}, &incident.ServiceTimeoutError{Shape: string(shape), Attempts: attempt, Err: err}
			}
			return Response{}, fmt.Errorf("%s call failed after %d attempt(s): %w", shape, attempt, err)
		}

		pause := bo.Pause()
		logger.Warn("retrying generative call",
			slog.String("shape", string(shape)),
			slog.Int("attempt", attempt),
			slog.Duration("pause", pause),
			slog.String("error", err.Error()),
		)
		if err := sleep(ctx, pause); err != nil {
			metrics.ServiceCalls.WithLabelValues(string(shape), "canceled").Inc()
			if errors.Is(err, context.DeadlineExceeded) {
				return Response{}, &incident.ServiceTimeoutError{Shape: string(shape), Attempts: attempt, Err: err}
			}
			return Response{}, fmt.Errorf("%s call: %w", shape, err)
		}
	}
}

// Transient reports whether err is worth retrying: per-attempt timeouts,
// network failures, rate limiting and server-side errors. Malformed or
// empty output is never transient.
func Transient(err error) bool {
	if err == nil || errors.Is(err, ErrEmptyResponse) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return retryableCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return retryableCode(apiErrPtr.Code)
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
