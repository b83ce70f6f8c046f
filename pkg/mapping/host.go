package mapping

// HostMap maps the parts of the virtual file copied from the companion source
// back onto the companion file. Its ranges use the companion file as the
// "template" side: Head covers the companion text before the injected method
// edit, Tail the text after it. The injected method itself maps nowhere.
type HostMap struct {
	Head Range
	Tail Range
}

// NewHostMap returns a map with no regions.
func NewHostMap() HostMap {
	return HostMap{Head: Invalid(), Tail: Invalid()}
}

// ToHost maps a virtual offset onto the companion source.
func (h HostMap) ToHost(offset int) (int, bool) {
	switch {
	case h.Head.ContainsVirtual(offset):
		return h.Head.toTemplate(offset), true
	case h.Tail.ContainsVirtual(offset):
		return h.Tail.toTemplate(offset), true
	}
	return offset, false
}

// SpanToHost maps [start, start+length) onto the companion source, dropping
// spans whose start is not copied from it.
func (h HostMap) SpanToHost(start, length int) (hStart, hEnd int, ok bool) {
	hStart, ok = h.ToHost(start)
	if !ok {
		return 0, 0, false
	}
	hEnd, endOK := h.ToHost(start + length)
	if !endOK || hEnd < hStart {
		hEnd = hStart
	}
	return hStart, hEnd, true
}
