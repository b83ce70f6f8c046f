package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/tmplts/pkg/position"
)

// triggerCharacters match the characters the service forwards to the engine
// as completion triggers.
var triggerCharacters = []string{".", "<", "\"", "'", "/", "@"}

func (s *Server) Initialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error) {
	s.mu.Lock()
	if params.RootURI != "" {
		s.rootPath = position.URIToPath(params.RootURI)
	}
	root := s.rootPath
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Str("root", root).Int("client_pid", params.ProcessID).Msg("initializing server")

	return &InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: TextDocumentSyncOptions{
				OpenClose: true,
				Change:    SyncIncremental,
				Save:      &SaveOptions{IncludeText: false},
			},
			CompletionProvider: &CompletionOptions{TriggerCharacters: triggerCharacters},
			HoverProvider:      true,
			DefinitionProvider: true,
			CodeActionProvider: true,
		},
		ServerInfo: &ServerInfo{Name: ServerName, Version: s.opts.Version},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, _ *struct{}) error {
	zerolog.Ctx(ctx).Debug().Msg("server initialized")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	zerolog.Ctx(ctx).Debug().Msg("shutting down")
	return nil
}

// Exit stops the server. The stop runs outside the handler, which the server
// would otherwise wait on.
func (s *Server) Exit(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	clean := s.shutdown
	s.mu.Unlock()

	if !clean {
		zerolog.Ctx(ctx).Warn().Msg("exit without shutdown")
	}
	if conn != nil {
		go conn.Stop()
	}
	return nil
}
