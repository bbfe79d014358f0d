package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/roach88/mergeviz/internal/protocol"
)

// DefaultFrameInterval is the renderer's redraw cadence.
const DefaultFrameInterval = 16 * time.Millisecond

// Poller is a non-blocking operation stream such as *transport.Receiver.
type Poller interface {
	TryRecv() (protocol.Operation, bool)
	Finished() bool
}

// Renderer draws a Mirror as vertical bars on a tcell screen.
//
// The renderer runs at its own cadence: each frame it drains whatever the
// engine has sent since the last frame, then redraws. It never blocks the
// engine and the engine never waits for a frame.
//
// The screen's lifecycle (Init, Fini) belongs to the caller.
type Renderer struct {
	mu      sync.Mutex
	screen  tcell.Screen
	mirror  *Mirror
	palette Palette
	frame   time.Duration
	title   string
	logger  *slog.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithPalette sets the colors. Default: DefaultPalette().
func WithPalette(p Palette) RendererOption {
	return func(r *Renderer) {
		r.palette = p
	}
}

// WithFrameInterval sets the redraw cadence. Default: DefaultFrameInterval.
func WithFrameInterval(d time.Duration) RendererOption {
	return func(r *Renderer) {
		if d > 0 {
			r.frame = d
		}
	}
}

// WithTitle sets the text shown at the start of the status line.
func WithTitle(title string) RendererOption {
	return func(r *Renderer) {
		r.title = title
	}
}

// WithRendererLogger sets the logger. Default: slog.Default().
func WithRendererLogger(l *slog.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = l
	}
}

// NewRenderer creates a renderer for a sequence starting as initial.
func NewRenderer(screen tcell.Screen, initial []protocol.Element, opts ...RendererOption) *Renderer {
	r := &Renderer{
		screen:  screen,
		mirror:  NewMirror(initial),
		palette: DefaultPalette(),
		frame:   DefaultFrameInterval,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mirror returns the renderer's replica. Callers must not apply to it while
// Run is active.
func (r *Renderer) Mirror() *Mirror {
	return r.mirror
}

// Apply implements Sink. It updates the replica without redrawing.
func (r *Renderer) Apply(op protocol.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mirror.Apply(op)
}

// Run drains src once per frame and redraws until the stream is finished
// or ctx is cancelled. The last frame always shows the final state.
func (r *Renderer) Run(ctx context.Context, src Poller) error {
	ticker := time.NewTicker(r.frame)
	defer ticker.Stop()

	frames := 0
	for {
		if err := r.drain(src); err != nil {
			return err
		}
		r.Draw()
		frames++

		if src.Finished() {
			// Drain once more: operations may have landed after the
			// previous drain but before Finished observed the close.
			if err := r.drain(src); err != nil {
				return err
			}
			r.Draw()
			r.logger.Debug("renderer finished",
				"frames", frames,
				"applied", r.mirror.Applied(),
			)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Renderer) drain(src Poller) error {
	for {
		op, ok := src.TryRecv()
		if !ok {
			return nil
		}
		if err := r.Apply(op); err != nil {
			return fmt.Errorf("render %s: %w", op, err)
		}
	}
}

// Draw paints the current replica and shows it.
//
// Bars fill every row but the last, which holds a status line. Each element
// gets an equal column slice; with more elements than columns the excess is
// not drawn.
func (r *Renderer) Draw() {
	r.mu.Lock()
	defer r.mu.Unlock()

	width, height := r.screen.Size()
	r.screen.Fill(' ', r.palette.EmptyStyle())

	elems := r.mirror.elems
	barRows := height - 1
	if len(elems) > 0 && width > 0 && barRows > 0 {
		lo, hi := valueRange(elems)
		barWidth := width / len(elems)
		if barWidth < 1 {
			barWidth = 1
		}
		gap := 0
		if barWidth >= 3 {
			gap = 1
		}

		ha, hb, hok := r.mirror.Highlight()
		for i, e := range elems {
			x0 := i * barWidth
			if x0 >= width {
				break
			}
			h := barHeight(e.Value, lo, hi, barRows)
			style := r.palette.BarStyle(e.Phase, hok && (i == ha || i == hb))
			for x := x0; x < x0+barWidth-gap && x < width; x++ {
				for y := barRows - h; y < barRows; y++ {
					r.screen.SetContent(x, y, ' ', nil, style)
				}
			}
		}
	}

	if height > 0 {
		r.drawText(0, height-1, r.statusLine())
	}
	r.screen.Show()
}

func (r *Renderer) statusLine() string {
	m := r.mirror
	status := fmt.Sprintf("seq %d  compares %d  writes %d",
		m.LastSeq(), m.Count(protocol.KindCompare), m.Count(protocol.KindOverwrite))
	if r.title != "" {
		status = r.title + "  " + status
	}
	return status
}

func (r *Renderer) drawText(x, y int, s string) {
	width, _ := r.screen.Size()
	style := r.palette.TextStyle()
	for _, ch := range s {
		if x >= width {
			return
		}
		r.screen.SetContent(x, y, ch, nil, style)
		x++
	}
}

// WatchKeys polls screen events until the screen is finalized, calling
// quit when the user presses q, Esc or Ctrl-C. Resize events trigger a full
// resync. Run it on its own goroutine.
func (r *Renderer) WatchKeys(quit func()) {
	for {
		ev := r.screen.PollEvent()
		if ev == nil {
			return
		}
		switch e := ev.(type) {
		case *tcell.EventKey:
			if e.Key() == tcell.KeyEscape || e.Key() == tcell.KeyCtrlC || e.Rune() == 'q' {
				quit()
			}
		case *tcell.EventResize:
			r.screen.Sync()
		}
	}
}

func valueRange(elems []protocol.Element) (lo, hi int64) {
	lo, hi = elems[0].Value, elems[0].Value
	for _, e := range elems[1:] {
		if e.Value < lo {
			lo = e.Value
		}
		if e.Value > hi {
			hi = e.Value
		}
	}
	return lo, hi
}

// barHeight scales v into [1, rows]. Equal values share a height.
func barHeight(v, lo, hi int64, rows int) int {
	if hi == lo {
		return rows
	}
	span := float64(hi - lo)
	return 1 + int(float64(v-lo)/span*float64(rows-1)+0.5)
}
