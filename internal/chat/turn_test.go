package chat_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floatchat/floatchat/internal/chat"
)

func TestContentUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     chat.Content
		wantText string
		wantErr  bool
	}{
		{
			name:     "bare string",
			input:    `"hello world"`,
			want:     chat.Content{{Type: "text", Text: "hello world"}},
			wantText: "hello world",
		},
		{
			name:     "parts array",
			input:    `[{"type":"text","text":"foo"},{"type":"text","text":"bar"}]`,
			want:     chat.Content{{Type: "text", Text: "foo"}, {Type: "text", Text: "bar"}},
			wantText: "foobar",
		},
		{
			name:     "unknown part types carried but not rendered",
			input:    `[{"type":"text","text":"a"},{"type":"image","text":"ignored"}]`,
			want:     chat.Content{{Type: "text", Text: "a"}, {Type: "image", Text: "ignored"}},
			wantText: "a",
		},
		{
			name:     "null",
			input:    `null`,
			want:     nil,
			wantText: "",
		},
		{
			name:     "empty string",
			input:    `""`,
			want:     chat.Content{{Type: "text", Text: ""}},
			wantText: "",
		},
		{
			name:    "object is rejected",
			input:   `{"text":"nope"}`,
			wantErr: true,
		},
		{
			name:    "number is rejected",
			input:   `42`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c chat.Content
			err := json.Unmarshal([]byte(tt.input), &c)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, tt.wantText, c.Text())
		})
	}
}

func TestTurnUnmarshal(t *testing.T) {
	t.Run("string content", func(t *testing.T) {
		var turn chat.Turn
		err := json.Unmarshal([]byte(`{"role":"user","parts":"hi there"}`), &turn)
		require.NoError(t, err)
		assert.Equal(t, chat.RoleUser, turn.Role)
		assert.Equal(t, "hi there", turn.Text())
	})

	t.Run("parts content", func(t *testing.T) {
		var turn chat.Turn
		err := json.Unmarshal([]byte(`{"id":"m1","role":"assistant","parts":[{"type":"text","text":"sure"}]}`), &turn)
		require.NoError(t, err)
		assert.Equal(t, "m1", turn.ID)
		assert.Equal(t, chat.RoleAssistant, turn.Role)
		assert.Equal(t, "sure", turn.Text())
	})
}

func TestNewTextTurn(t *testing.T) {
	turn := chat.NewTextTurn(chat.RoleUser, "question")
	assert.Equal(t, chat.RoleUser, turn.Role)
	assert.Equal(t, "question", turn.Text())
	require.Len(t, turn.Parts, 1)
	assert.Equal(t, chat.PartText, turn.Parts[0].Type)
}
