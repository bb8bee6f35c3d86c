package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soundprediction/predmap/pkg/types"
)

// mockClient is a Client that returns scripted responses.
type mockClient struct {
	calls     int
	failUntil int
	err       error
}

func (m *mockClient) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	m.calls++
	if m.calls <= m.failUntil {
		return nil, m.err
	}
	return &types.Response{Content: "ok"}, nil
}

func (m *mockClient) Close() error { return nil }

func fastRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Millisecond,
		MaxDelay:          5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryClientRecoversFromTransientFailure(t *testing.T) {
	mock := &mockClient{failUntil: 2, err: NewRateLimitError()}
	client := NewRetryClient(mock, fastRetryConfig(3))

	resp, err := client.Chat(context.Background(), []types.Message{NewUserMessage("hi")})
	if err != nil {
		t.Fatalf("Chat() error = %v, want success after retries", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Chat() content = %q, want ok", resp.Content)
	}
	if mock.calls != 3 {
		t.Errorf("Chat() made %d calls, want 3", mock.calls)
	}
}

func TestRetryClientFailsImmediatelyOnNonRetryableError(t *testing.T) {
	permanent := errors.New("invalid request body")
	mock := &mockClient{failUntil: 10, err: permanent}
	client := NewRetryClient(mock, fastRetryConfig(3))

	_, err := client.Chat(context.Background(), nil)
	if !errors.Is(err, permanent) {
		t.Fatalf("Chat() error = %v, want permanent error", err)
	}
	if mock.calls != 1 {
		t.Errorf("Chat() made %d calls, want 1", mock.calls)
	}
}

func TestRetryClientExhaustsRetries(t *testing.T) {
	mock := &mockClient{failUntil: 10, err: errors.New("503 service unavailable")}
	client := NewRetryClient(mock, fastRetryConfig(2))

	_, err := client.Chat(context.Background(), nil)
	if err == nil {
		t.Fatal("Chat() succeeded, want exhausted retries")
	}
	if mock.calls != 3 {
		t.Errorf("Chat() made %d calls, want 3 (initial + 2 retries)", mock.calls)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit type", NewRateLimitError(), true},
		{"rate limit sentinel", ErrRateLimit, true},
		{"gateway timeout", errors.New("504 gateway timeout"), true},
		{"connection reset", errors.New("read: connection reset by peer"), true},
		{"bad request", errors.New("400 bad request"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableError(tt.err); got != tt.want {
				t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
