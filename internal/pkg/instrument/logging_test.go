package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewHandler(newJSONHandler(buf, slog.LevelDebug), "passcode", []string{"code", "Auth_Token"}))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestHandlerMasksConfiguredKeys(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newTestLogger(buf)

	ctx := SetCorrelationID(context.Background(), "cid-1")
	log.InfoContext(ctx, "issued",
		"code", "123456",
		"body", `{"contact":"+910000000001","code":"654321"}`,
		"creds", map[string]string{"auth_token": "secret", "sid": "AC1"},
	)

	line := decodeLine(t, buf)
	assert.Equal(t, "***", line["code"])
	assert.JSONEq(t, `{"contact":"+910000000001","code":"***"}`, line["body"].(string))
	assert.Equal(t, map[string]any{"auth_token": "***", "sid": "AC1"}, line["creds"])
	assert.Equal(t, "cid-1", line["_cID"])
	assert.Equal(t, "passcode", line["service"])
	assert.Equal(t, "INFO", line["severity"])
}

func TestHandlerMasksWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	newTestLogger(buf).With("code", "111111").Info("child")

	line := decodeLine(t, buf)
	assert.Equal(t, "***", line["code"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestNoopInstrumentation(t *testing.T) {
	ins := NewNoop()
	_, span := ins.Tracer("t").Start(context.Background(), "op")
	span.End()

	counter, err := ins.Meter("m").Int64Counter("c")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
	assert.NoError(t, ins.Shutdown(context.Background()))
}
