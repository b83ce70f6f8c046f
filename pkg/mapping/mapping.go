// Package mapping translates offsets between a template and the virtual
// source synthesized from it.
//
// A template maps onto its virtual file through at most two contiguous
// regions: the import prelude, copied verbatim to the head of the virtual
// file, and the body, spliced into the injected method. Everything else in the
// virtual file (the companion class around the body) has no template
// counterpart.
package mapping

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Range maps one contiguous region: [StartTemplate, EndTemplate) in template
// coordinates onto [StartVirtual, EndVirtual) in virtual coordinates. Both
// intervals have the same length.
//
// Containment treats the end bound as inside, since engines report
// zero-length spans at the end of a region.
type Range struct {
	StartTemplate int
	EndTemplate   int
	StartVirtual  int
	EndVirtual    int
}

// Invalid is the "no region" sentinel. It never contains any offset.
func Invalid() Range {
	return Range{StartTemplate: -1, EndTemplate: -1, StartVirtual: -1, EndVirtual: -1}
}

// NewRange builds a region of length bytes starting at the given offsets.
func NewRange(startTemplate, startVirtual, length int) Range {
	return Range{
		StartTemplate: startTemplate,
		EndTemplate:   startTemplate + length,
		StartVirtual:  startVirtual,
		EndVirtual:    startVirtual + length,
	}
}

func (r Range) IsValid() bool {
	return r.StartTemplate >= 0 && r.StartVirtual >= 0 &&
		r.EndTemplate >= r.StartTemplate && r.EndVirtual >= r.StartVirtual
}

func (r Range) ContainsTemplate(offset int) bool {
	return r.IsValid() && offset >= r.StartTemplate && offset <= r.EndTemplate
}

func (r Range) ContainsVirtual(offset int) bool {
	return r.IsValid() && offset >= r.StartVirtual && offset <= r.EndVirtual
}

func (r Range) toVirtual(offset int) int {
	return offset - r.StartTemplate + r.StartVirtual
}

func (r Range) toTemplate(offset int) int {
	return offset - r.StartVirtual + r.StartTemplate
}

func (r Range) String() string {
	if !r.IsValid() {
		return "<invalid>"
	}
	return fmt.Sprintf("[%d,%d)->[%d,%d)", r.StartTemplate, r.EndTemplate, r.StartVirtual, r.EndVirtual)
}

// Translator holds the two regions produced by one synthesis pass. The pair is
// always replaced as a unit.
type Translator struct {
	Body   Range
	Import Range
}

// NewTranslator returns a translator with no regions.
func NewTranslator() Translator {
	return Translator{Body: Invalid(), Import: Invalid()}
}

// Overlaps reports whether the two regions share any virtual offset.
func (t Translator) Overlaps() bool {
	if !t.Body.IsValid() || !t.Import.IsValid() {
		return false
	}
	return t.Body.StartVirtual < t.Import.EndVirtual && t.Import.StartVirtual < t.Body.EndVirtual
}

// ToVirtual maps a template offset into the virtual file. The body wins at the
// seam between the two regions. When no region claims the offset it is
// returned unchanged and ok is false.
func (t Translator) ToVirtual(ctx context.Context, offset int) (virtual int, ok bool) {
	switch {
	case t.Body.ContainsTemplate(offset):
		return t.Body.toVirtual(offset), true
	case t.Import.ContainsTemplate(offset):
		return t.Import.toVirtual(offset), true
	}
	zerolog.Ctx(ctx).Debug().
		Int("template_offset", offset).
		Stringer("body", t.Body).
		Stringer("import", t.Import).
		Msg("template offset outside every region, passing through")
	return offset, false
}

// ToTemplate maps a virtual offset back into the template. When no region
// claims the offset it is returned unchanged and ok is false.
func (t Translator) ToTemplate(ctx context.Context, offset int) (template int, ok bool) {
	switch {
	case t.Body.ContainsVirtual(offset):
		return t.Body.toTemplate(offset), true
	case t.Import.ContainsVirtual(offset):
		return t.Import.toTemplate(offset), true
	}
	zerolog.Ctx(ctx).Debug().
		Int("virtual_offset", offset).
		Stringer("body", t.Body).
		Stringer("import", t.Import).
		Msg("virtual offset outside every region, passing through")
	return offset, false
}

// SpanToTemplate maps the virtual span [start, start+length) into template
// offsets. The span is dropped (ok false) when its start has no template
// counterpart. An end that escapes every region is clamped to the end of the
// region holding the start.
func (t Translator) SpanToTemplate(ctx context.Context, start, length int) (tStart, tEnd int, ok bool) {
	region, found := t.regionForVirtual(start)
	if !found {
		zerolog.Ctx(ctx).Debug().
			Int("virtual_start", start).
			Int("length", length).
			Msg("dropping span outside every region")
		return 0, 0, false
	}

	tStart = region.toTemplate(start)

	end := start + length
	if endRegion, found := t.regionForVirtual(end); found {
		tEnd = endRegion.toTemplate(end)
	} else {
		tEnd = region.EndTemplate
	}
	if tEnd < tStart {
		tEnd = tStart
	}
	return tStart, tEnd, true
}

// SpanToVirtual maps the template span [start, end) into virtual offsets.
func (t Translator) SpanToVirtual(ctx context.Context, start, end int) (vStart, vEnd int, ok bool) {
	vStart, ok = t.ToVirtual(ctx, start)
	if !ok {
		return 0, 0, false
	}
	vEnd, endOK := t.ToVirtual(ctx, end)
	if !endOK || vEnd < vStart {
		vEnd = vStart
	}
	return vStart, vEnd, true
}

func (t Translator) regionForVirtual(offset int) (Range, bool) {
	switch {
	case t.Body.ContainsVirtual(offset):
		return t.Body, true
	case t.Import.ContainsVirtual(offset):
		return t.Import, true
	}
	return Range{}, false
}
