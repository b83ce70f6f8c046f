package lsp_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/walteh/tmplts/pkg/engine"
)

type MockEngine struct {
	mock.Mock
}

var _ engine.Engine = (*MockEngine)(nil)

func (m *MockEngine) UpdateFile(ctx context.Context, fileName, content string) error {
	args := m.Called(ctx, fileName, content)
	return args.Error(0)
}

func (m *MockEngine) CloseFile(ctx context.Context, fileName string) error {
	args := m.Called(ctx, fileName)
	return args.Error(0)
}

func (m *MockEngine) Completions(ctx context.Context, fileName string, offset int, opts engine.CompletionOptions) ([]engine.CompletionEntry, error) {
	args := m.Called(ctx, fileName, offset, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.CompletionEntry), args.Error(1)
}

func (m *MockEngine) QuickInfo(ctx context.Context, fileName string, offset int) (*engine.QuickInfo, error) {
	args := m.Called(ctx, fileName, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.QuickInfo), args.Error(1)
}

func (m *MockEngine) Definitions(ctx context.Context, fileName string, offset int) ([]engine.DefinitionInfo, error) {
	args := m.Called(ctx, fileName, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.DefinitionInfo), args.Error(1)
}

func (m *MockEngine) SemanticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	args := m.Called(ctx, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.Diagnostic), args.Error(1)
}

func (m *MockEngine) SyntacticDiagnostics(ctx context.Context, fileName string) ([]engine.Diagnostic, error) {
	args := m.Called(ctx, fileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.Diagnostic), args.Error(1)
}

func (m *MockEngine) CodeFixes(ctx context.Context, fileName string, span engine.Span, errorCodes []int) ([]engine.CodeFixAction, error) {
	args := m.Called(ctx, fileName, span, errorCodes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.CodeFixAction), args.Error(1)
}
