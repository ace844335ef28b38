package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/minutebridge-backend/internal/domain"
)

const (
	defaultMaxRetries = 2
	initialBackoff    = 750 * time.Millisecond
	maxBackoff        = 10 * time.Second
)

func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// retryTransient retries fn on Unavailable/ResourceExhausted with capped
// exponential backoff. It stops as soon as ctx is done.
func retryTransient[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	var zero T
	backoff := initialBackoff
	var last error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn()
		if err == nil {
			return out, nil
		}
		last = err
		if !isTransient(err) || attempt == maxRetries {
			break
		}
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return zero, last
}

// capabilityErr wraps a gRPC failure in the domain sentinel the extraction
// strategies understand. invalid is used for input the service rejected
// outright. Context errors pass through untouched.
func capabilityErr(op string, err error, invalid error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	st, _ := status.FromError(err)
	msg := strings.ToLower(st.Message())
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrCredentialMissing, err)
	case codes.Canceled:
		return fmt.Errorf("%s: %w", op, context.Canceled)
	case codes.InvalidArgument, codes.OutOfRange:
		switch {
		case strings.Contains(msg, "too long"), strings.Contains(msg, "exceeds"), strings.Contains(msg, "too large"):
			return fmt.Errorf("%s: %w: %v", op, domain.ErrCapabilityPayloadTooLarge, err)
		case strings.Contains(msg, "password"), strings.Contains(msg, "encrypted"):
			return fmt.Errorf("%s: %w: %v", op, domain.ErrDocumentEncrypted, err)
		case strings.Contains(msg, "unsupported"):
			return fmt.Errorf("%s: %w: %v", op, domain.ErrUnsupportedFormat, err)
		}
		return fmt.Errorf("%s: %w: %v", op, invalid, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrCapabilityUnavailable, err)
	}
}
