package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PoLsss/ML-lightrag-core/internal/llm"
	"github.com/PoLsss/ML-lightrag-core/internal/llm/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func fastRetry() llm.RetryConfig {
	return llm.RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryingClient_RetriesTransientErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().Name().Return("mock").AnyTimes()

	gomock.InOrder(
		mockClient.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(nil, errors.New("ThrottlingException: Rate exceeded")),
		mockClient.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(&llm.Response{Content: "ok"}, nil),
	)

	client := llm.NewRetryingClient(mockClient, fastRetry(), newTestLogger())
	resp, err := client.Complete(context.Background(), llm.Request{Prompt: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestRetryingClient_DoesNotRetryClientErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().Name().Return("mock").AnyTimes()
	mockClient.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(nil, errors.New("ValidationException: bad prompt")).Times(1)

	client := llm.NewRetryingClient(mockClient, fastRetry(), newTestLogger())
	_, err := client.Complete(context.Background(), llm.Request{Prompt: "hi"})

	assert.ErrorContains(t, err, "non-retryable")
}

func TestRetryingClient_GivesUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockClient := mocks.NewMockClient(ctrl)
	mockClient.EXPECT().Name().Return("mock").AnyTimes()
	mockClient.EXPECT().Stream(gomock.Any(), gomock.Any()).Return(nil, errors.New("503 ServiceUnavailableException")).Times(3)

	client := llm.NewRetryingClient(mockClient, fastRetry(), newTestLogger())
	_, err := client.Stream(context.Background(), llm.Request{Prompt: "hi"})

	assert.ErrorContains(t, err, "max retries 3 exceeded")
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, llm.IsRetryableError(nil))
	assert.False(t, llm.IsRetryableError(context.Canceled))
	assert.True(t, llm.IsRetryableError(errors.New("read: connection reset by peer")))
	assert.True(t, llm.IsRetryableError(errors.New("status code: 429")))
	assert.False(t, llm.IsRetryableError(errors.New("AccessDeniedException")))
}

func TestCalculateBackoff(t *testing.T) {
	for attempt := range 6 {
		d := llm.CalculateBackoff(attempt, 100*time.Millisecond, time.Second)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
	}
}
