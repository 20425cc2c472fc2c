// Package capture implements the client-side annotation capture engine: the
// active draw tool, in-progress shape construction and a snapshot-based
// undo/redo history. A Session is scoped to one viewer connection and is not
// safe for concurrent use; the review flow drives it synchronously.
package capture

import (
	"time"

	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
)

type Tool string

const (
	ToolNone      Tool = ""
	ToolPin       Tool = "pin"
	ToolText      Tool = "text"
	ToolRectangle Tool = "rectangle"
	ToolArrow     Tool = "arrow"
	ToolFreehand  Tool = "freehand"
)

const (
	rectMinExtent  = 2.0
	arrowMinLength = 5.0
	freehandMinPts = 2
)

type Style struct {
	Color       string  `json:"color"`
	Opacity     float64 `json:"opacity"`
	StrokeWidth float64 `json:"stroke_width"`
}

// Shape is one committed annotation in the session's working set.
type Shape struct {
	ID        uuid.UUID `json:"id"`
	Frame     int       `json:"frame"`
	Style     Style     `json:"style"`
	Geometry  Geometry  `json:"geometry"`
	CreatedAt time.Time `json:"created_at"`
}

type draft struct {
	frame  int
	startX float64
	startY float64
	curX   float64
	curY   float64
	points []Point
}

type Session struct {
	log       *logger.Logger
	tool      Tool
	style     Style
	textInput string
	shapes    []Shape
	undo      [][]Shape
	redo      [][]Shape
	draft     *draft
	now       func() time.Time
}

func NewSession(log *logger.Logger) *Session {
	return &Session{
		log:   log.With("component", "CaptureSession"),
		style: Style{Color: "#FF3B30", Opacity: 1.0, StrokeWidth: 2.0},
		now:   time.Now,
	}
}

// SelectTool switches the active tool and discards any in-progress shape.
func (s *Session) SelectTool(tool Tool) {
	s.tool = tool
	s.draft = nil
}

func (s *Session) Tool() Tool { return s.tool }

func (s *Session) SetStyle(style Style) { s.style = style }

func (s *Session) Style() Style { return s.style }

// SetTextInput stages the content the text tool will commit on the next
// pointer-down.
func (s *Session) SetTextInput(text string) { s.textInput = text }

// Shapes returns a copy of the committed set.
func (s *Session) Shapes() []Shape {
	out := make([]Shape, len(s.shapes))
	copy(out, s.shapes)
	return out
}

// PointerDown starts or commits a shape depending on the active tool.
// Instant-commit tools (pin, text) return the committed shape immediately;
// drag tools begin capture and return nothing until PointerUp.
func (s *Session) PointerDown(frame int, x, y float64) (Shape, bool) {
	switch s.tool {
	case ToolPin:
		label := s.pinCountOnFrame(frame) + 1
		return s.commit(frame, Pin{X: x, Y: y, Label: label})
	case ToolText:
		if s.textInput == "" {
			return Shape{}, false
		}
		return s.commit(frame, Text{X: x, Y: y, Text: s.textInput})
	case ToolRectangle, ToolArrow, ToolFreehand:
		s.draft = &draft{frame: frame, startX: x, startY: y, curX: x, curY: y}
		if s.tool == ToolFreehand {
			s.draft.points = []Point{{X: x, Y: y}}
		}
		return Shape{}, false
	default:
		return Shape{}, false
	}
}

// PointerMove accumulates drag state; a no-op without an active draft.
func (s *Session) PointerMove(x, y float64) {
	if s.draft == nil {
		return
	}
	s.draft.curX = x
	s.draft.curY = y
	if s.tool == ToolFreehand {
		s.draft.points = append(s.draft.points, Point{X: x, Y: y})
	}
}

// PointerUp commits the in-progress drag when it clears the tool's minimum
// extent. Sub-threshold drags are discarded so a plain click never leaves a
// zero-size mark.
func (s *Session) PointerUp() (Shape, bool) {
	d := s.draft
	if d == nil {
		return Shape{}, false
	}
	s.draft = nil

	switch s.tool {
	case ToolRectangle:
		g := rectFromDrag(d)
		if g.Width <= rectMinExtent || g.Height <= rectMinExtent {
			return Shape{}, false
		}
		return s.commit(d.frame, g)
	case ToolArrow:
		g := Arrow{X1: d.startX, Y1: d.startY, X2: d.curX, Y2: d.curY}
		if g.Length() <= arrowMinLength {
			return Shape{}, false
		}
		return s.commit(d.frame, g)
	case ToolFreehand:
		if len(d.points) < freehandMinPts {
			return Shape{}, false
		}
		return s.commit(d.frame, Freehand{Points: d.points})
	default:
		return Shape{}, false
	}
}

// CancelDrag aborts the in-progress shape with no side effect.
func (s *Session) CancelDrag() { s.draft = nil }

// Remove deletes a committed shape by id.
func (s *Session) Remove(id uuid.UUID) bool {
	for i, sh := range s.shapes {
		if sh.ID == id {
			s.pushUndo()
			s.shapes = append(s.shapes[:i:i], s.shapes[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every committed shape as one undoable operation.
func (s *Session) Clear() {
	if len(s.shapes) == 0 {
		return
	}
	s.pushUndo()
	s.shapes = nil
}

// Undo restores the most recent pre-mutation snapshot; the replaced state
// moves onto the redo stack.
func (s *Session) Undo() bool {
	if len(s.undo) == 0 {
		return false
	}
	last := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, snapshot(s.shapes))
	s.shapes = last
	return true
}

// Redo mirrors Undo.
func (s *Session) Redo() bool {
	if len(s.redo) == 0 {
		return false
	}
	last := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, snapshot(s.shapes))
	s.shapes = last
	return true
}

// UpdateGeometry edits a committed shape in place. Edits keep undo
// granularity at whole-shape creation/deletion, so no snapshot is pushed.
func (s *Session) UpdateGeometry(id uuid.UUID, g Geometry) bool {
	if g == nil || g.validate() != nil {
		return false
	}
	for i := range s.shapes {
		if s.shapes[i].ID == id {
			if s.shapes[i].Geometry.Kind() != g.Kind() {
				return false
			}
			s.shapes[i].Geometry = g
			return true
		}
	}
	return false
}

func (s *Session) commit(frame int, g Geometry) (Shape, bool) {
	if err := g.validate(); err != nil {
		s.log.Debug("discarding invalid shape", "kind", g.Kind(), "error", err)
		return Shape{}, false
	}
	s.pushUndo()
	shape := Shape{
		ID:        uuid.New(),
		Frame:     frame,
		Style:     s.style,
		Geometry:  g,
		CreatedAt: s.now(),
	}
	s.shapes = append(s.shapes, shape)
	return shape, true
}

// pushUndo snapshots the pre-mutation set and invalidates redo history.
func (s *Session) pushUndo() {
	s.undo = append(s.undo, snapshot(s.shapes))
	s.redo = nil
}

func (s *Session) pinCountOnFrame(frame int) int {
	count := 0
	for _, sh := range s.shapes {
		if sh.Frame == frame && sh.Geometry.Kind() == KindPin {
			count++
		}
	}
	return count
}

func rectFromDrag(d *draft) Rectangle {
	x, w := d.startX, d.curX-d.startX
	if w < 0 {
		x, w = d.curX, -w
	}
	y, h := d.startY, d.curY-d.startY
	if h < 0 {
		y, h = d.curY, -h
	}
	return Rectangle{X: x, Y: y, Width: w, Height: h}
}

func snapshot(shapes []Shape) []Shape {
	out := make([]Shape, len(shapes))
	copy(out, shapes)
	return out
}
