package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/tmplts/pkg/position"
)

// DidChangeWatchedFiles resynthesizes the open templates next to every
// changed companion source. Template changes arrive through the document
// notifications instead.
func (s *Server) DidChangeWatchedFiles(ctx context.Context, params *DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		s.fileChanged(ctx, position.URIToPath(change.URI))
	}
	return nil
}

func (s *Server) fileChanged(ctx context.Context, path string) {
	naming := s.service.Registry().Naming()
	if naming.IsTemplate(path) || naming.IsGenerated(path) {
		return
	}
	s.refresh(ctx, path)
}

func (s *Server) refresh(ctx context.Context, changedPath string) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	ids := s.service.Refresh(ctx, changedPath)
	if len(ids) == 0 {
		return
	}
	zerolog.Ctx(ctx).Debug().Str("path", changedPath).Strs("templates", ids).Msg("companion changed")

	for _, id := range ids {
		doc, ok := s.documents.Get(position.PathToURI(id))
		if !ok {
			continue
		}
		s.publishDiagnostics(ctx, doc)
	}
}
