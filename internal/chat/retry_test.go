package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", errors.New("429 rate limit exceeded"), true},
		{"quota", errors.New("Quota Exceeded for project"), true},
		{"server error", errors.New("upstream returned 503"), true},
		{"unavailable", errors.New("service temporarily UNAVAILABLE"), true},
		{"connection reset", errors.New("read tcp: connection reset by peer"), true},
		{"timeout", errors.New("request timeout"), true},
		{"bad api key", errors.New("invalid api key"), false},
		{"schema error", errors.New("schema validation failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryableError(tt.err))
		})
	}
}

func TestRetryConfigValidate(t *testing.T) {
	valid := RetryConfig{MaxRetries: 3, InitialInterval: time.Second, MaxInterval: 10 * time.Second}
	assert.NoError(t, valid.validate())

	tests := []struct {
		name string
		cfg  RetryConfig
	}{
		{"negative retries", RetryConfig{MaxRetries: -1, InitialInterval: time.Second, MaxInterval: time.Minute}},
		{"zero initial interval", RetryConfig{MaxRetries: 1, InitialInterval: 0, MaxInterval: time.Minute}},
		{"max below initial", RetryConfig{MaxRetries: 1, InitialInterval: time.Minute, MaxInterval: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.validate())
		})
	}
}

func TestProviderMessages(t *testing.T) {
	turns := []Turn{
		NewTextTurn(RoleSystem, "be brief"),
		NewTextTurn(RoleUser, "hello"),
		NewTextTurn(RoleAssistant, "hi"),
		NewTextTurn(RoleUser, "   "),
		NewTextTurn(RoleUser, ""), // nothing to send
		{Role: "observer", Parts: Content{{Type: PartText, Text: "odd role"}}},
	}

	msgs := providerMessages(turns)
	assert.Len(t, msgs, 5)
	assert.Equal(t, "system", string(msgs[0].Role))
	assert.Equal(t, "user", string(msgs[1].Role))
	assert.Equal(t, "model", string(msgs[2].Role))
	// Whitespace-only text goes to the provider untouched.
	assert.Equal(t, "user", string(msgs[3].Role))
	assert.Equal(t, "   ", msgs[3].Text())
	// Unknown roles default to user.
	assert.Equal(t, "user", string(msgs[4].Role))
	assert.Equal(t, "odd role", msgs[4].Text())
}
