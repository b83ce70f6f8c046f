package lsp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"github.com/walteh/tmplts/pkg/debug"
)

// Notifier pushes notifications to the client; *jrpc2.Server is one.
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

// LSPWriter turns zerolog JSON lines into window/logMessage notifications.
// Lines written before a notifier is attached are dropped.
type LSPWriter struct {
	mu       sync.Mutex
	ctx      context.Context
	notifier Notifier
}

func NewLSPWriter(ctx context.Context) *LSPWriter {
	return &LSPWriter{ctx: ctx}
}

func (w *LSPWriter) Attach(n Notifier) {
	w.mu.Lock()
	w.notifier = n
	w.mu.Unlock()
}

func (w *LSPWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.notifier == nil {
		return len(p), nil
	}

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil
	}

	level, _ := entry["level"].(string)
	msg, _ := entry["message"].(string)
	delete(entry, "level")
	delete(entry, "message")

	if len(entry) > 0 {
		if extra, err := json.Marshal(entry); err == nil {
			msg += " " + string(extra)
		}
	}

	err := w.notifier.Notify(w.ctx, "window/logMessage", LogMessageParams{
		Type:    ParseMessageTypeFromZerolog(level),
		Message: msg,
	})
	return len(p), err
}

// ParseMessageTypeFromZerolog converts a zerolog level name.
func ParseMessageTypeFromZerolog(level string) MessageType {
	switch level {
	case "error", "fatal", "panic":
		return Error
	case "warn":
		return Warning
	case "info":
		return Info
	case "debug", "trace":
		return Debug
	default:
		return Log
	}
}

// WithLSPWriter returns a context whose logger writes to w at the level of
// the logger already in ctx.
func WithLSPWriter(ctx context.Context, w *LSPWriter, serverID string) context.Context {
	level := zerolog.Ctx(ctx).GetLevel()
	return zerolog.New(w).
		Level(level).
		With().
		Str("server_id", serverID).
		Logger().
		Hook(debug.CustomTimeHook{}).
		Hook(debug.CustomCallerHook{}).
		WithContext(ctx)
}

func ApplyRequestToZerolog(ctx context.Context, req *jrpc2.Request) context.Context {
	return zerolog.Ctx(ctx).With().Str("rpc_method", req.Method()).Str("rpc_id", req.ID()).Logger().WithContext(ctx)
}

// RPCLogger logs every request and response at trace level.
type RPCLogger struct{}

var _ jrpc2.RPCLogger = (*RPCLogger)(nil)

func (RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	zerolog.Ctx(ctx).Trace().Str("rpc_params", req.ParamString()).Str("rpc_id", req.ID()).Str("rpc_method", req.Method()).Msg("client request")
}

func (RPCLogger) LogResponse(ctx context.Context, res *jrpc2.Response) {
	zerolog.Ctx(ctx).Trace().Str("rpc_result", res.ResultString()).Str("rpc_id", res.ID()).Msg("server response")
}
