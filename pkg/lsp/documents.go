package lsp

import (
	"sync"

	"github.com/walteh/tmplts/pkg/position"
	"gitlab.com/tozd/go/errors"
)

var ErrDocumentNotOpen = errors.Base("document not open")

// DocumentManager holds the editor's view of open documents, keyed by
// filesystem path so differently escaped URIs agree.
type DocumentManager struct {
	mu   sync.RWMutex
	docs map[string]*position.Document
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{docs: make(map[string]*position.Document)}
}

func (m *DocumentManager) Open(uri string, version int32, text string) *position.Document {
	doc := position.NewDocument(uri, version, text)
	m.mu.Lock()
	m.docs[position.URIToPath(uri)] = doc
	m.mu.Unlock()
	return doc
}

func (m *DocumentManager) Get(uri string) (*position.Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[position.URIToPath(uri)]
	return doc, ok
}

// Change applies changes in order, each against the result of the previous
// one.
func (m *DocumentManager) Change(uri string, version int32, changes []TextDocumentContentChangeEvent) (*position.Document, error) {
	key := position.URIToPath(uri)

	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrDocumentNotOpen, uri)
	}
	for _, c := range changes {
		doc = position.NewDocument(doc.URI, version, doc.Apply(c.Range, c.Text))
	}
	if len(changes) == 0 {
		doc = position.NewDocument(doc.URI, version, doc.Text())
	}
	m.docs[key] = doc
	return doc, nil
}

func (m *DocumentManager) Close(uri string) {
	m.mu.Lock()
	delete(m.docs, position.URIToPath(uri))
	m.mu.Unlock()
}
