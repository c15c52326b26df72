package plugins

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"golang.org/x/text/unicode/runenames"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/mdast"
)

const NameA11yEmoji = "a11y-emoji"

type a11yEmoji struct{}

func newA11yEmoji(opts Options) (content.Plugin, error) {
	if err := opts.rejectUnknown(NameA11yEmoji); err != nil {
		return nil, err
	}
	return a11yEmoji{}, nil
}

func (a11yEmoji) Name() string { return NameA11yEmoji }

func (a11yEmoji) Extenders() []goldmark.Extender { return []goldmark.Extender{emoji.Emoji} }

// Transform labels shortcode emoji and lifts literal emoji out of text into
// labelled emoji nodes.
func (a11yEmoji) Transform(tree *mdast.Node) error {
	return mdast.Walk(tree, func(n, _ *mdast.Node, _ int) (mdast.WalkStatus, error) {
		switch n.Type {
		case mdast.TypeCode, mdast.TypeInlineCode, mdast.TypeHTML:
			return mdast.WalkSkipChildren, nil
		case mdast.TypeEmoji:
			label(n)
			return mdast.WalkSkipChildren, nil
		}
		if len(n.Children) == 0 {
			return mdast.WalkContinue, nil
		}
		out := make([]*mdast.Node, 0, len(n.Children))
		for _, child := range n.Children {
			if child.Type != mdast.TypeText {
				out = append(out, child)
				continue
			}
			out = append(out, splitEmoji(child.Value)...)
		}
		n.Children = out
		return mdast.WalkContinue, nil
	})
}

func label(n *mdast.Node) {
	name := n.Label
	if name == "" {
		name = emojiName(n.Value)
	}
	n.Label = name
	n.SetData("role", "img")
	n.SetData("aria-label", name)
}

// splitEmoji returns value as a sequence of text and emoji nodes.
func splitEmoji(value string) []*mdast.Node {
	var out []*mdast.Node
	start := 0
	for i := 0; i < len(value); {
		if !startsEmoji(value, i) {
			_, size := utf8.DecodeRuneInString(value[i:])
			i += size
			continue
		}
		end := emojiEnd(value, i)
		if i > start {
			out = append(out, mdast.NewText(value[start:i]))
		}
		e := &mdast.Node{Type: mdast.TypeEmoji, Value: value[i:end]}
		label(e)
		out = append(out, e)
		i, start = end, end
	}
	if start < len(value) {
		out = append(out, mdast.NewText(value[start:]))
	}
	if len(out) == 0 {
		return []*mdast.Node{mdast.NewText(value)}
	}
	return out
}

// emojiEnd returns the byte offset just past the emoji sequence starting at i:
// modifiers, variation selectors, ZWJ joins and a second regional indicator
// for flags all belong to the same sequence.
func emojiEnd(value string, i int) int {
	first, size := utf8.DecodeRuneInString(value[i:])
	j := i + size
	if isRegionalIndicator(first) {
		if r, sz := utf8.DecodeRuneInString(value[j:]); isRegionalIndicator(r) {
			return j + sz
		}
		return j
	}
	for j < len(value) {
		r, sz := utf8.DecodeRuneInString(value[j:])
		switch {
		case r == 0xFE0F || r == 0x20E3 || isSkinTone(r):
			j += sz
		case r == 0x200D:
			next, nsz := utf8.DecodeRuneInString(value[j+sz:])
			if !unicode.Is(extendedPictographic, next) && !isRegionalIndicator(next) {
				return j
			}
			j += sz + nsz
		default:
			return j
		}
	}
	return j
}

func emojiName(seq string) string {
	r, size := utf8.DecodeRuneInString(seq)
	if isRegionalIndicator(r) {
		if r2, _ := utf8.DecodeRuneInString(seq[size:]); isRegionalIndicator(r2) {
			return "flag " + string([]rune{'A' + (r - 0x1F1E6), 'A' + (r2 - 0x1F1E6)})
		}
	}
	name := strings.ToLower(runenames.Name(r))
	if name == "" {
		return "emoji"
	}
	return name
}

func isRegionalIndicator(r rune) bool { return r >= 0x1F1E6 && r <= 0x1F1FF }

func isSkinTone(r rune) bool { return r >= 0x1F3FB && r <= 0x1F3FF }

// startsEmoji reports whether an emoji sequence begins at byte i. Pictographs
// outside the BMP and those with emoji presentation always qualify; text-style
// symbols such as ↔ or © only when a variation selector or skin tone follows.
func startsEmoji(value string, i int) bool {
	r, size := utf8.DecodeRuneInString(value[i:])
	switch {
	case isRegionalIndicator(r):
		return true
	case !unicode.Is(extendedPictographic, r):
		return false
	case r > 0xFFFF || unicode.Is(emojiPresentation, r):
		return true
	}
	next, _ := utf8.DecodeRuneInString(value[i+size:])
	return next == 0xFE0F || isSkinTone(next)
}

// extendedPictographic holds the Extended_Pictographic code points of
// Unicode 15.1 that are assigned or reserved for pictographs.
var extendedPictographic = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00A9, Hi: 0x00A9, Stride: 1},
		{Lo: 0x00AE, Hi: 0x00AE, Stride: 1},
		{Lo: 0x203C, Hi: 0x203C, Stride: 1},
		{Lo: 0x2049, Hi: 0x2049, Stride: 1},
		{Lo: 0x2122, Hi: 0x2122, Stride: 1},
		{Lo: 0x2139, Hi: 0x2139, Stride: 1},
		{Lo: 0x2194, Hi: 0x2199, Stride: 1},
		{Lo: 0x21A9, Hi: 0x21AA, Stride: 1},
		{Lo: 0x231A, Hi: 0x231B, Stride: 1},
		{Lo: 0x2328, Hi: 0x2328, Stride: 1},
		{Lo: 0x2388, Hi: 0x2388, Stride: 1},
		{Lo: 0x23CF, Hi: 0x23CF, Stride: 1},
		{Lo: 0x23E9, Hi: 0x23F3, Stride: 1},
		{Lo: 0x23F8, Hi: 0x23FA, Stride: 1},
		{Lo: 0x24C2, Hi: 0x24C2, Stride: 1},
		{Lo: 0x25AA, Hi: 0x25AB, Stride: 1},
		{Lo: 0x25B6, Hi: 0x25B6, Stride: 1},
		{Lo: 0x25C0, Hi: 0x25C0, Stride: 1},
		{Lo: 0x25FB, Hi: 0x25FE, Stride: 1},
		{Lo: 0x2600, Hi: 0x2605, Stride: 1},
		{Lo: 0x2607, Hi: 0x2612, Stride: 1},
		{Lo: 0x2614, Hi: 0x2685, Stride: 1},
		{Lo: 0x2690, Hi: 0x2705, Stride: 1},
		{Lo: 0x2708, Hi: 0x2712, Stride: 1},
		{Lo: 0x2714, Hi: 0x2714, Stride: 1},
		{Lo: 0x2716, Hi: 0x2716, Stride: 1},
		{Lo: 0x271D, Hi: 0x271D, Stride: 1},
		{Lo: 0x2721, Hi: 0x2721, Stride: 1},
		{Lo: 0x2728, Hi: 0x2728, Stride: 1},
		{Lo: 0x2733, Hi: 0x2734, Stride: 1},
		{Lo: 0x2744, Hi: 0x2744, Stride: 1},
		{Lo: 0x2747, Hi: 0x2747, Stride: 1},
		{Lo: 0x274C, Hi: 0x274C, Stride: 1},
		{Lo: 0x274E, Hi: 0x274E, Stride: 1},
		{Lo: 0x2753, Hi: 0x2755, Stride: 1},
		{Lo: 0x2757, Hi: 0x2757, Stride: 1},
		{Lo: 0x2763, Hi: 0x2767, Stride: 1},
		{Lo: 0x2795, Hi: 0x2797, Stride: 1},
		{Lo: 0x27A1, Hi: 0x27A1, Stride: 1},
		{Lo: 0x27B0, Hi: 0x27B0, Stride: 1},
		{Lo: 0x27BF, Hi: 0x27BF, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2B05, Hi: 0x2B07, Stride: 1},
		{Lo: 0x2B1B, Hi: 0x2B1C, Stride: 1},
		{Lo: 0x2B50, Hi: 0x2B50, Stride: 1},
		{Lo: 0x2B55, Hi: 0x2B55, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303D, Hi: 0x303D, Stride: 1},
		{Lo: 0x3297, Hi: 0x3297, Stride: 1},
		{Lo: 0x3299, Hi: 0x3299, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1F0FF, Stride: 1},
		{Lo: 0x1F10D, Hi: 0x1F10F, Stride: 1},
		{Lo: 0x1F12F, Hi: 0x1F12F, Stride: 1},
		{Lo: 0x1F16C, Hi: 0x1F171, Stride: 1},
		{Lo: 0x1F17E, Hi: 0x1F17F, Stride: 1},
		{Lo: 0x1F18E, Hi: 0x1F18E, Stride: 1},
		{Lo: 0x1F191, Hi: 0x1F19A, Stride: 1},
		{Lo: 0x1F1AD, Hi: 0x1F1E5, Stride: 1},
		{Lo: 0x1F201, Hi: 0x1F20F, Stride: 1},
		{Lo: 0x1F21A, Hi: 0x1F21A, Stride: 1},
		{Lo: 0x1F22F, Hi: 0x1F22F, Stride: 1},
		{Lo: 0x1F232, Hi: 0x1F23A, Stride: 1},
		{Lo: 0x1F23C, Hi: 0x1F23F, Stride: 1},
		{Lo: 0x1F249, Hi: 0x1F3FA, Stride: 1},
		{Lo: 0x1F400, Hi: 0x1F53D, Stride: 1},
		{Lo: 0x1F546, Hi: 0x1F64F, Stride: 1},
		{Lo: 0x1F680, Hi: 0x1F6FF, Stride: 1},
		{Lo: 0x1F774, Hi: 0x1F77F, Stride: 1},
		{Lo: 0x1F7D5, Hi: 0x1F7FF, Stride: 1},
		{Lo: 0x1F80C, Hi: 0x1F80F, Stride: 1},
		{Lo: 0x1F848, Hi: 0x1F84F, Stride: 1},
		{Lo: 0x1F85A, Hi: 0x1F85F, Stride: 1},
		{Lo: 0x1F888, Hi: 0x1F88F, Stride: 1},
		{Lo: 0x1F8AE, Hi: 0x1F8FF, Stride: 1},
		{Lo: 0x1F90C, Hi: 0x1F93A, Stride: 1},
		{Lo: 0x1F93C, Hi: 0x1F945, Stride: 1},
		{Lo: 0x1F947, Hi: 0x1FAFF, Stride: 1},
		{Lo: 0x1FC00, Hi: 0x1FFFD, Stride: 1},
	},
	LatinOffset: 2,
}

// emojiPresentation holds the BMP pictographs that render as emoji without a
// variation selector.
var emojiPresentation = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x231A, Hi: 0x231B, Stride: 1},
		{Lo: 0x23E9, Hi: 0x23EC, Stride: 1},
		{Lo: 0x23F0, Hi: 0x23F0, Stride: 1},
		{Lo: 0x23F3, Hi: 0x23F3, Stride: 1},
		{Lo: 0x25FD, Hi: 0x25FE, Stride: 1},
		{Lo: 0x2614, Hi: 0x2615, Stride: 1},
		{Lo: 0x2648, Hi: 0x2653, Stride: 1},
		{Lo: 0x267F, Hi: 0x267F, Stride: 1},
		{Lo: 0x2693, Hi: 0x2693, Stride: 1},
		{Lo: 0x26A1, Hi: 0x26A1, Stride: 1},
		{Lo: 0x26AA, Hi: 0x26AB, Stride: 1},
		{Lo: 0x26BD, Hi: 0x26BE, Stride: 1},
		{Lo: 0x26C4, Hi: 0x26C5, Stride: 1},
		{Lo: 0x26CE, Hi: 0x26CE, Stride: 1},
		{Lo: 0x26D4, Hi: 0x26D4, Stride: 1},
		{Lo: 0x26EA, Hi: 0x26EA, Stride: 1},
		{Lo: 0x26F2, Hi: 0x26F3, Stride: 1},
		{Lo: 0x26F5, Hi: 0x26F5, Stride: 1},
		{Lo: 0x26FA, Hi: 0x26FA, Stride: 1},
		{Lo: 0x26FD, Hi: 0x26FD, Stride: 1},
		{Lo: 0x2705, Hi: 0x2705, Stride: 1},
		{Lo: 0x270A, Hi: 0x270B, Stride: 1},
		{Lo: 0x2728, Hi: 0x2728, Stride: 1},
		{Lo: 0x274C, Hi: 0x274C, Stride: 1},
		{Lo: 0x274E, Hi: 0x274E, Stride: 1},
		{Lo: 0x2753, Hi: 0x2755, Stride: 1},
		{Lo: 0x2757, Hi: 0x2757, Stride: 1},
		{Lo: 0x2795, Hi: 0x2797, Stride: 1},
		{Lo: 0x27B0, Hi: 0x27B0, Stride: 1},
		{Lo: 0x27BF, Hi: 0x27BF, Stride: 1},
		{Lo: 0x2B1B, Hi: 0x2B1C, Stride: 1},
		{Lo: 0x2B50, Hi: 0x2B50, Stride: 1},
		{Lo: 0x2B55, Hi: 0x2B55, Stride: 1},
	},
}
