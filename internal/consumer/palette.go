package consumer

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/roach88/mergeviz/internal/protocol"
)

// Palette maps phases to bar colors.
//
// Phase colors are a presentation concern: the engine only emits tags, so a
// palette can change without touching anything upstream.
type Palette struct {
	Phases     map[protocol.Phase]colorful.Color
	Highlight  colorful.Color
	Background colorful.Color
	Text       colorful.Color

	// HighlightBlend is how far a compared bar moves towards Highlight,
	// from 0 (unchanged) to 1 (Highlight).
	HighlightBlend float64
}

// DefaultPalette returns the standard colors. Left-side phases are green,
// right-side phases are yellow, and the lighter shade marks a placement.
func DefaultPalette() Palette {
	return Palette{
		Phases: map[protocol.Phase]colorful.Color{
			protocol.Neutral:             mustHex("#ffffff"),
			protocol.Dividing:            mustHex("#add8e6"),
			protocol.LeftMergeCandidate:  mustHex("#00ff00"),
			protocol.RightMergeCandidate: mustHex("#ffff00"),
			protocol.PlacedFromLeft:      mustHex("#90ee90"),
			protocol.PlacedFromRight:     mustHex("#ffffe0"),
		},
		Highlight:      mustHex("#ff8c00"),
		Background:     mustHex("#000000"),
		Text:           mustHex("#c0c0c0"),
		HighlightBlend: 0.6,
	}
}

// ParsePalette builds a palette from hex colors keyed by phase name,
// starting from DefaultPalette. The extra keys "highlight", "background"
// and "text" set the non-phase colors.
func ParsePalette(hex map[string]string) (Palette, error) {
	p := DefaultPalette()
	for name, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return Palette{}, fmt.Errorf("color %q for %s: %w", h, name, err)
		}
		switch name {
		case "highlight":
			p.Highlight = c
		case "background":
			p.Background = c
		case "text":
			p.Text = c
		default:
			phase, err := protocol.ParsePhase(name)
			if err != nil {
				return Palette{}, err
			}
			p.Phases[phase] = c
		}
	}
	return p, nil
}

// Color returns the bar color for phase, blended towards Highlight when the
// element is part of the current comparison.
func (p Palette) Color(phase protocol.Phase, highlighted bool) colorful.Color {
	c, ok := p.Phases[phase]
	if !ok {
		c = p.Phases[protocol.Neutral]
	}
	if highlighted {
		c = c.BlendLab(p.Highlight, p.HighlightBlend).Clamped()
	}
	return c
}

// BarStyle returns the tcell style used to paint a bar cell.
func (p Palette) BarStyle(phase protocol.Phase, highlighted bool) tcell.Style {
	return tcell.StyleDefault.
		Background(toTcell(p.Color(phase, highlighted))).
		Foreground(toTcell(p.Background))
}

// EmptyStyle returns the style for cells above the bars.
func (p Palette) EmptyStyle() tcell.Style {
	return tcell.StyleDefault.Background(toTcell(p.Background))
}

// TextStyle returns the style for the status line.
func (p Palette) TextStyle() tcell.Style {
	return tcell.StyleDefault.
		Background(toTcell(p.Background)).
		Foreground(toTcell(p.Text))
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}
