// Package term draws experiment frames in a terminal and reads the terminal
// mouse as a gaze stand-in.
package term

import (
	"fmt"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/teslashibe/go-fixate/pkg/geom"
)

var (
	styleTarget = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleActive = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleCursor = tcell.StyleDefault.Foreground(tcell.ColorRed).Reverse(true)
	styleLost   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleText   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

// Screen maps a virtual experiment screen onto terminal cells. It implements
// xy.Mouse and experiment.Display.
type Screen struct {
	screen tcell.Screen
	width  float64
	height float64

	mu      sync.Mutex
	mouseX  int
	mouseY  int
	mouseOK bool

	lastX, lastY float64 // last valid cursor, drawn from the session goroutine
	seen         bool

	keys     chan rune
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

// New initializes the controlling terminal for a width×height virtual screen.
func New(width, height float64) (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("term: %w", err)
	}
	if err := s.Init(); err != nil {
		return nil, fmt.Errorf("term: %w", err)
	}
	return NewWithScreen(s, width, height)
}

// NewWithScreen wraps an initialized tcell screen.
func NewWithScreen(s tcell.Screen, width, height float64) (*Screen, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("term: invalid virtual size %gx%g", width, height)
	}
	s.EnableMouse()
	s.HideCursor()

	t := &Screen{
		screen: s,
		width:  width,
		height: height,
		keys:   make(chan rune, 16),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go t.poll()
	return t, nil
}

// Close restores the terminal.
func (t *Screen) Close() {
	t.screen.Fini()
	<-t.done
}

// Keys delivers typed runes. Runes are dropped when nobody reads.
func (t *Screen) Keys() <-chan rune { return t.keys }

// Quit is closed when the user presses Escape, q or Ctrl-C.
func (t *Screen) Quit() <-chan struct{} { return t.quit }

func (t *Screen) poll() {
	defer close(t.done)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventMouse:
			x, y := ev.Position()
			t.mu.Lock()
			t.mouseX, t.mouseY, t.mouseOK = x, y, true
			t.mu.Unlock()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
				(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
				t.quitOnce.Do(func() { close(t.quit) })
				continue
			}
			if ev.Key() == tcell.KeyRune {
				select {
				case t.keys <- ev.Rune():
				default:
				}
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

// Position implements xy.Mouse. It reports the centre of the last cell the
// mouse was seen over, in virtual coordinates.
func (t *Screen) Position() (x, y float64, ok bool) {
	t.mu.Lock()
	cx, cy, ok := t.mouseX, t.mouseY, t.mouseOK
	t.mu.Unlock()
	if !ok {
		return 0, 0, false
	}
	cols, rows := t.screen.Size()
	if cols <= 0 || rows <= 0 {
		return 0, 0, false
	}
	return (float64(cx) + 0.5) * t.width / float64(cols),
		(float64(cy) + 0.5) * t.height / float64(rows), true
}

// Cell converts virtual coordinates to a terminal cell, clamped to the screen.
func (t *Screen) Cell(x, y float64) (col, row int) {
	cols, rows := t.screen.Size()
	col = clamp(int(math.Floor(x*float64(cols)/t.width)), cols-1)
	row = clamp(int(math.Floor(y*float64(rows)/t.height)), rows-1)
	return col, row
}

func clamp(v, hi int) int {
	if v > hi {
		v = hi
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Clear implements experiment.Display.
func (t *Screen) Clear() {
	t.screen.Clear()
}

// DrawTarget outlines r and writes name inside its top edge.
func (t *Screen) DrawTarget(name string, r geom.Rect, active bool) {
	style := styleTarget
	if active {
		style = styleActive
	}
	x1, y1 := t.Cell(r.X1, r.Y1)
	x2, y2 := t.Cell(r.X2, r.Y2)

	for x := x1; x <= x2; x++ {
		t.screen.SetContent(x, y1, '-', nil, style)
		t.screen.SetContent(x, y2, '-', nil, style)
	}
	for y := y1; y <= y2; y++ {
		t.screen.SetContent(x1, y, '|', nil, style)
		t.screen.SetContent(x2, y, '|', nil, style)
	}
	for _, c := range [][2]int{{x1, y1}, {x2, y1}, {x1, y2}, {x2, y2}} {
		t.screen.SetContent(c[0], c[1], '+', nil, style)
	}
	t.puts(x1+1, y1, name, x2-x1-1, style)
}

// DrawCursor marks the current gaze position. Invalid samples are drawn as
// '?' at the last known position.
func (t *Screen) DrawCursor(x, y float64, valid bool) {
	if valid {
		t.lastX, t.lastY, t.seen = x, y, true
		col, row := t.Cell(x, y)
		t.screen.SetContent(col, row, '@', nil, styleCursor)
		return
	}
	if !t.seen {
		return
	}
	col, row := t.Cell(t.lastX, t.lastY)
	t.screen.SetContent(col, row, '?', nil, styleLost)
}

// DrawText writes a status line on the bottom row.
func (t *Screen) DrawText(text string) {
	cols, rows := t.screen.Size()
	t.puts(0, rows-1, text, cols, styleText)
}

// Flip shows the frame.
func (t *Screen) Flip() {
	t.screen.Show()
}

func (t *Screen) puts(x, y int, s string, max int, style tcell.Style) {
	i := 0
	for _, r := range s {
		if i >= max {
			return
		}
		t.screen.SetContent(x+i, y, r, nil, style)
		i++
	}
}
