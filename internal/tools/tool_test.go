package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floatchat/floatchat/internal/testutil"
	"github.com/floatchat/floatchat/internal/tools"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"the text to echo"`
}

type echoOutput struct {
	Echoed string `json:"echoed"`
}

func newEchoTool(t *testing.T) *tools.Tool {
	t.Helper()
	tool, err := tools.New("echo", "Echo the input text back.",
		func(_ context.Context, in echoInput) (echoOutput, error) {
			return echoOutput{Echoed: in.Text}, nil
		})
	require.NoError(t, err)
	return tool
}

func TestNew_Validation(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		_, err := tools.New("", "desc", func(_ context.Context, in echoInput) (echoOutput, error) {
			return echoOutput{}, nil
		})
		assert.Error(t, err)
	})

	t.Run("nil handler", func(t *testing.T) {
		_, err := tools.New[echoInput, echoOutput]("echo", "desc", nil)
		assert.Error(t, err)
	})

	t.Run("declaration is populated", func(t *testing.T) {
		tool := newEchoTool(t)
		assert.Equal(t, "echo", tool.Name())
		assert.Equal(t, "Echo the input text back.", tool.Description())
		require.NotNil(t, tool.Schema())
		assert.Contains(t, tool.Schema().Properties, "text")
	})
}

func TestMustNew_PanicsOnBadDeclaration(t *testing.T) {
	assert.Panics(t, func() {
		tools.MustNew[echoInput, echoOutput]("", "desc", nil)
	})
}

func TestToolCall(t *testing.T) {
	tool := newEchoTool(t)
	ctx := context.Background()

	t.Run("valid arguments", func(t *testing.T) {
		out, err := tool.Call(ctx, json.RawMessage(`{"text":"ping"}`))
		require.NoError(t, err)
		assert.Equal(t, echoOutput{Echoed: "ping"}, out)
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := tool.Call(ctx, json.RawMessage(`{}`))
		var verr *tools.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "echo", verr.Tool)
		assert.NotEmpty(t, verr.Detail)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := tool.Call(ctx, json.RawMessage(`{"text":42}`))
		var verr *tools.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := tool.Call(ctx, json.RawMessage(`{broken`))
		var verr *tools.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("handler errors pass through untouched", func(t *testing.T) {
		sentinel := errors.New("backend down")
		failing, err := tools.New("failing", "always fails",
			func(_ context.Context, _ echoInput) (echoOutput, error) {
				return echoOutput{}, sentinel
			})
		require.NoError(t, err)

		_, err = failing.Call(ctx, json.RawMessage(`{"text":"x"}`))
		assert.ErrorIs(t, err, sentinel)
		var verr *tools.ValidationError
		assert.False(t, errors.As(err, &verr))
	})

	t.Run("empty args default to an empty object", func(t *testing.T) {
		timeTool := tools.NewCurrentTime(testutil.DiscardLogger())
		out, err := timeTool.Call(ctx, nil)
		require.NoError(t, err)
		assert.IsType(t, tools.CurrentTimeResult{}, out)
	})
}

func TestWeatherTool(t *testing.T) {
	tool := tools.NewWeather(testutil.DiscardLogger())
	ctx := context.Background()

	for range 20 {
		out, err := tool.Call(ctx, json.RawMessage(`{"location":"Taipei"}`))
		require.NoError(t, err)

		report, ok := out.(tools.WeatherReport)
		require.True(t, ok)
		assert.Equal(t, "Taipei", report.Location)
		assert.GreaterOrEqual(t, report.Temperature, 32)
		assert.LessOrEqual(t, report.Temperature, 90)
	}
}

func TestCurrentTimeTool(t *testing.T) {
	tool := tools.NewCurrentTime(testutil.DiscardLogger())

	before := time.Now().Unix()
	out, err := tool.Call(context.Background(), json.RawMessage(`{}`))
	after := time.Now().Unix()
	require.NoError(t, err)

	result, ok := out.(tools.CurrentTimeResult)
	require.True(t, ok)
	assert.GreaterOrEqual(t, result.Unix, before)
	assert.LessOrEqual(t, result.Unix, after)
	assert.NotEmpty(t, result.Formatted)

	parsed, err := time.Parse(time.RFC3339, result.ISO8601)
	require.NoError(t, err)
	assert.Equal(t, result.Unix, parsed.Unix())
}
