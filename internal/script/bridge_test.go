package script_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CZERTAINLY/harness/internal/legacylog"
	"github.com/CZERTAINLY/harness/internal/script"
)

func newBridge(t *testing.T) (*legacylog.Publisher, *script.Observer, func() []map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	p := legacylog.NewPublisher()
	o := script.NewObserver(p)
	o.Logger = slog.New(slog.NewJSONHandler(&buf, nil))
	entries := func() []map[string]any {
		var ret []map[string]any
		for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}
			var m map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &m))
			delete(m, "time")
			ret = append(ret, m)
		}
		return ret
	}
	return p, o, entries
}

func divide(a, b int) (q int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = p.(error)
		}
	}()
	return a / b, nil
}

func TestObserver(t *testing.T) {
	t.Parallel()

	t.Run("message", func(t *testing.T) {
		t.Parallel()
		p, o, entries := newBridge(t)
		o.Start()
		defer o.Stop()

		p.Msg("Hello", "world")
		require.Equal(t, []map[string]any{{
			"level":   "INFO",
			"msg":     script.LegacyLogMessage,
			"error":   false,
			"message": "Hello world",
		}}, entries())
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		p, o, entries := newBridge(t)
		o.Start()
		defer o.Stop()

		_, err := divide(1, 0)
		require.Error(t, err)
		p.Err(err, "A zero division ono")

		got := entries()
		require.Len(t, got, 1)
		require.Equal(t, "ERROR", got[0]["level"])
		require.Equal(t, true, got[0]["error"])
		require.Len(t, got[0], 4)
		msg, ok := got[0]["message"].(string)
		require.True(t, ok)
		require.True(t, strings.HasPrefix(msg, "A zero division ono\n"), msg)
		require.Contains(t, msg, fmt.Sprintf("%T", err))
		require.Contains(t, msg, "integer divide by zero")
		require.Contains(t, msg, "bridge_test.go")
	})

	t.Run("order", func(t *testing.T) {
		t.Parallel()
		p, o, entries := newBridge(t)
		o.Start()
		o.Start()
		defer o.Stop()

		for i := range 5 {
			p.Msg("line", i)
		}
		got := entries()
		require.Len(t, got, 5)
		for i, e := range got {
			require.Equal(t, fmt.Sprintf("line %d", i), e["message"])
		}
	})

	t.Run("stop", func(t *testing.T) {
		t.Parallel()
		p, o, entries := newBridge(t)
		o.Start()
		o.Stop()
		o.Stop()

		p.Msg("nobody listens")
		require.Empty(t, entries())
	})
}
