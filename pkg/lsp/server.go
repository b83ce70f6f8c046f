// Package lsp serves the template analysis over the Language Server Protocol.
package lsp

import (
	"context"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/walteh/tmplts/pkg/diagnostic"
	"github.com/walteh/tmplts/pkg/position"
	"github.com/walteh/tmplts/pkg/service"
	"github.com/walteh/tmplts/pkg/watch"
	"gitlab.com/tozd/go/errors"
)

const ServerName = "tmplts"

type Options struct {
	Version string
	// ForwardLogs sends log lines to the client as window/logMessage instead
	// of the logger in the serving context.
	ForwardLogs bool
	// WatchFiles watches the directories of open templates for companion
	// changes, for clients that do not report them.
	WatchFiles bool
}

// Server is the language server of one editor session.
type Server struct {
	id        string
	opts      Options
	service   *service.Service
	documents *DocumentManager

	mu       sync.Mutex
	rootPath string
	shutdown bool

	conn *jrpc2.Server

	// syncMu orders resyntheses from requests against those from the
	// file watcher.
	syncMu  sync.Mutex
	watcher *watch.Watcher
}

func NewServer(svc *service.Service, opts Options) *Server {
	return &Server{
		id:        xid.New().String(),
		opts:      opts,
		service:   svc,
		documents: NewDocumentManager(),
	}
}

func (s *Server) ID() string {
	return s.id
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

// Handlers maps every method the server answers.
func (s *Server) Handlers() handler.Map {
	return handler.Map{
		"initialize":                      createHandler(s.Initialize),
		"initialized":                     createEmptyResultHandler(s.Initialized),
		"shutdown":                        createEmptyHandler(s.Shutdown),
		"exit":                            createEmptyHandler(s.Exit),
		"textDocument/didOpen":            createEmptyResultHandler(s.DidOpen),
		"textDocument/didChange":          createEmptyResultHandler(s.DidChange),
		"textDocument/didSave":            createEmptyResultHandler(s.DidSave),
		"textDocument/didClose":           createEmptyResultHandler(s.DidClose),
		"textDocument/completion":         createHandler(s.Completion),
		"textDocument/hover":              createHandler(s.Hover),
		"textDocument/definition":         createHandler(s.Definition),
		"textDocument/codeAction":         createHandler(s.CodeAction),
		"workspace/didChangeWatchedFiles": createEmptyResultHandler(s.DidChangeWatchedFiles),
	}
}

// BuildServerInstance wires the handlers into a jrpc2 server that can push
// notifications. Requests are handled one at a time so edits apply in order.
func (s *Server) BuildServerInstance(ctx context.Context, opts *jrpc2.ServerOptions) *jrpc2.Server {
	if opts == nil {
		opts = &jrpc2.ServerOptions{}
	}
	opts.AllowPush = true
	opts.Concurrency = 1

	var writer *LSPWriter
	if s.opts.ForwardLogs {
		writer = NewLSPWriter(ctx)
		ctx = WithLSPWriter(ctx, writer, s.id)
	} else {
		ctx = zerolog.Ctx(ctx).With().Str("server_id", s.id).Logger().WithContext(ctx)
	}
	opts.NewContext = func() context.Context { return ctx }

	srv := jrpc2.NewServer(s.Handlers(), opts)
	if writer != nil {
		writer.Attach(srv)
	}

	s.mu.Lock()
	s.conn = srv
	s.mu.Unlock()
	return srv
}

// Serve runs the server on ch until the client exits or the stream closes.
func (s *Server) Serve(ctx context.Context, ch channel.Channel, opts *jrpc2.ServerOptions) error {
	if s.opts.WatchFiles {
		w, err := watch.New(s.fileChanged)
		if err != nil {
			return err
		}
		defer w.Close()

		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go w.Run(wctx)
		s.watcher = w
	}

	srv := s.BuildServerInstance(ctx, opts).Start(ch)
	if err := srv.Wait(); err != nil {
		return errors.Errorf("language server: %w", err)
	}
	return nil
}

func (s *Server) notify(ctx context.Context, method string, params any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Notify(ctx, method, params)
}

// publishDiagnostics reports the current diagnostics of doc. Failures are
// logged; they never fail the notification that triggered them.
func (s *Server) publishDiagnostics(ctx context.Context, doc *position.Document) {
	logger := zerolog.Ctx(ctx)

	diags, err := s.service.Diagnostics(ctx, doc)
	if err != nil {
		logger.Warn().Err(err).Str("uri", doc.URI).Msg("computing diagnostics")
		return
	}
	if diags == nil {
		diags = []diagnostic.Diagnostic{}
	}

	err = s.notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     doc.Version,
		Diagnostics: diags,
	})
	if err != nil {
		logger.Warn().Err(err).Str("uri", doc.URI).Msg("publishing diagnostics")
	}
}

func (s *Server) clearDiagnostics(ctx context.Context, uri string) {
	err := s.notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []diagnostic.Diagnostic{},
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("uri", uri).Msg("clearing diagnostics")
	}
}

func newParseError(err error) *jrpc2.Error {
	return &jrpc2.Error{
		Code:    -32700, // parse error
		Message: err.Error(),
	}
}

// Params decode without strict field checking: clients send far more than
// the wire types here declare.
func createHandler[T any, O any](method func(ctx context.Context, params *T) (O, error)) handler.Func {
	return handler.New(func(ctx context.Context, r *jrpc2.Request) (any, error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		var params T
		if err := r.UnmarshalParams(jrpc2.NonStrict(&params)); err != nil {
			return nil, newParseError(err)
		}
		return method(ctx, &params)
	})
}

func createEmptyResultHandler[T any](method func(ctx context.Context, params *T) error) handler.Func {
	return handler.New(func(ctx context.Context, r *jrpc2.Request) (any, error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		var params T
		if err := r.UnmarshalParams(jrpc2.NonStrict(&params)); err != nil {
			return nil, newParseError(err)
		}
		return nil, method(ctx, &params)
	})
}

func createEmptyHandler(method func(ctx context.Context) error) handler.Func {
	return handler.New(func(ctx context.Context, r *jrpc2.Request) (any, error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		return nil, method(ctx)
	})
}
