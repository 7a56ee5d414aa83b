package batch

import "strings"

// Layout assigns a one-letter semantic tag to each axis of a sample, in
// axis order. An empty layout means no axis carries a tag.
//
// The only tag the dispatch layer interprets is 'F': a sequence/frame axis
// along which a sample may be decomposed into per-frame work items.
// Remaining tags (height, width, channel, ...) are carried for consumers
// but not interpreted here.
type Layout string

// FrameAxisTag marks the sequence/frame axis of a sample.
const FrameAxisTag = 'F'

// FrameAxis returns the index of the frame axis, or -1 if the layout does
// not tag one.
func (l Layout) FrameAxis() int {
	return strings.IndexByte(string(l), FrameAxisTag)
}

// HasFrames reports whether the layout tags a frame axis.
func (l Layout) HasFrames() bool {
	return l.FrameAxis() >= 0
}

// DropAxis returns the layout with the tag at the given axis removed.
// Useful when describing per-frame sub-units of a sample.
func (l Layout) DropAxis(axis int) Layout {
	if axis < 0 || axis >= len(l) {
		return l
	}
	return l[:axis] + l[axis+1:]
}
