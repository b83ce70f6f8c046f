package mapping_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/tmplts/pkg/mapping"
)

func TestRangeContains(t *testing.T) {
	r := mapping.NewRange(10, 100, 5)

	tests := []struct {
		name     string
		template int
		virtual  int
		want     bool
	}{
		{name: "before start", template: 9, virtual: 99, want: false},
		{name: "at start", template: 10, virtual: 100, want: true},
		{name: "middle", template: 12, virtual: 102, want: true},
		{name: "exactly at end", template: 15, virtual: 105, want: true},
		{name: "past end", template: 16, virtual: 106, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ContainsTemplate(tt.template))
			assert.Equal(t, tt.want, r.ContainsVirtual(tt.virtual))
		})
	}
}

func TestInvalidRangeContainsNothing(t *testing.T) {
	r := mapping.Invalid()
	require.False(t, r.IsValid())
	for _, off := range []int{-1, 0, 1, 1000} {
		assert.False(t, r.ContainsTemplate(off), "template %d", off)
		assert.False(t, r.ContainsVirtual(off), "virtual %d", off)
	}
}

// prelude "import a;\n" (10 bytes) at virtual 0, body of 20 bytes at virtual 150
func newTranslator() mapping.Translator {
	return mapping.Translator{
		Import: mapping.NewRange(0, 0, 10),
		Body:   mapping.NewRange(10, 150, 20),
	}
}

func TestTranslatorRoundTrip(t *testing.T) {
	ctx := context.Background()
	tr := newTranslator()

	for off := 0; off <= 30; off++ {
		v, ok := tr.ToVirtual(ctx, off)
		require.True(t, ok, "offset %d", off)
		back, ok := tr.ToTemplate(ctx, v)
		require.True(t, ok, "offset %d", off)
		assert.Equal(t, off, back, "offset %d", off)
	}
}

func TestTranslatorSeamPrefersBody(t *testing.T) {
	ctx := context.Background()
	tr := newTranslator()

	v, ok := tr.ToVirtual(ctx, 10)
	require.True(t, ok)
	assert.Equal(t, 150, v)

	v, ok = tr.ToVirtual(ctx, 9)
	require.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestTranslatorPassthrough(t *testing.T) {
	ctx := context.Background()
	tr := newTranslator()

	off, ok := tr.ToTemplate(ctx, 75)
	assert.False(t, ok)
	assert.Equal(t, 75, off)

	off, ok = mapping.NewTranslator().ToVirtual(ctx, 3)
	assert.False(t, ok)
	assert.Equal(t, 3, off)
}

func TestTranslatorNoOverlap(t *testing.T) {
	assert.False(t, newTranslator().Overlaps())
	assert.True(t, mapping.Translator{
		Import: mapping.NewRange(0, 0, 10),
		Body:   mapping.NewRange(10, 5, 20),
	}.Overlaps())
}

func TestSpanToTemplate(t *testing.T) {
	ctx := context.Background()
	tr := newTranslator()

	tests := []struct {
		name      string
		start     int
		length    int
		wantStart int
		wantEnd   int
		wantOK    bool
	}{
		{name: "inside body", start: 152, length: 4, wantStart: 12, wantEnd: 16, wantOK: true},
		{name: "inside prelude", start: 2, length: 3, wantStart: 2, wantEnd: 5, wantOK: true},
		{name: "zero length at body end", start: 170, length: 0, wantStart: 30, wantEnd: 30, wantOK: true},
		{name: "end escapes body is clamped", start: 165, length: 40, wantStart: 25, wantEnd: 30, wantOK: true},
		{name: "inside class wrapper is dropped", start: 60, length: 5, wantOK: false},
		{name: "after body is dropped", start: 171, length: 1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := tr.SpanToTemplate(ctx, tt.start, tt.length)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestSpanToVirtual(t *testing.T) {
	ctx := context.Background()
	tr := newTranslator()

	start, end, ok := tr.SpanToVirtual(ctx, 12, 15)
	require.True(t, ok)
	assert.Equal(t, 152, start)
	assert.Equal(t, 155, end)

	_, _, ok = mapping.NewTranslator().SpanToVirtual(ctx, 0, 1)
	assert.False(t, ok)
}

func TestHostMap(t *testing.T) {
	// companion: 40 bytes before the edit, 30 bytes after; in the virtual file
	// the head starts after a 10 byte prelude and the tail lands at 200
	h := mapping.HostMap{
		Head: mapping.NewRange(0, 10, 40),
		Tail: mapping.NewRange(60, 200, 30),
	}

	off, ok := h.ToHost(15)
	require.True(t, ok)
	assert.Equal(t, 5, off)

	off, ok = h.ToHost(210)
	require.True(t, ok)
	assert.Equal(t, 70, off)

	_, ok = h.ToHost(100)
	assert.False(t, ok)

	start, end, ok := h.SpanToHost(12, 4)
	require.True(t, ok)
	assert.Equal(t, 2, start)
	assert.Equal(t, 6, end)

	_, ok = mapping.NewHostMap().ToHost(0)
	assert.False(t, ok)
}
