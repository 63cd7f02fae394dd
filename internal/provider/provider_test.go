package provider

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindRateLimit, KindOf(NewFault(KindRateLimit, errors.New("429"))))
	assert.Equal(t, KindOther, KindOf(errors.New("plain")))

	wrapped := fmt.Errorf("attempt 2: %w", NewFault(KindAuth, errors.New("bad key")))
	assert.Equal(t, KindAuth, KindOf(wrapped))
}

func TestKindPermanent(t *testing.T) {
	assert.True(t, KindQuota.Permanent())
	assert.True(t, KindAuth.Permanent())
	assert.False(t, KindRateLimit.Permanent())
	assert.False(t, KindOther.Permanent())
}

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		apiErr *openai.APIError
		want   Kind
	}{
		{&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}, KindRateLimit},
		{&openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Type: "insufficient_quota", Message: "you exceeded your current quota"}, KindQuota},
		{&openai.APIError{HTTPStatusCode: http.StatusPaymentRequired, Message: "payment required"}, KindQuota},
		{&openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "invalid api key"}, KindAuth},
		{&openai.APIError{HTTPStatusCode: http.StatusForbidden, Message: "forbidden"}, KindAuth},
		{&openai.APIError{HTTPStatusCode: http.StatusInternalServerError, Message: "oops"}, KindOther},
		{&openai.APIError{HTTPStatusCode: http.StatusOK, Message: "billing hard limit reached"}, KindQuota},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, KindOf(classify(tc.apiErr)), "status %d %q", tc.apiErr.HTTPStatusCode, tc.apiErr.Message)
	}
}

func TestClassifyPlainError(t *testing.T) {
	err := classify(errors.New("connection refused"))
	assert.Equal(t, KindOther, KindOf(err))
}
