package capture

import (
	"encoding/json"
	"fmt"
	"math"
)

type Kind string

const (
	KindPin       Kind = "pin"
	KindRectangle Kind = "rectangle"
	KindFreehand  Kind = "freehand"
	KindArrow     Kind = "arrow"
	KindText      Kind = "text"
)

// Geometry is a closed union over annotation shapes. Coordinates are
// percentages of the frame dimensions (0-100) so shapes survive resolution
// changes. Each variant carries exactly the fields its kind requires; a
// shape never persists with a partial field set.
type Geometry interface {
	Kind() Kind
	validate() error
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Pin struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label int     `json:"label"`
}

type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Freehand struct {
	Points []Point `json:"points"`
}

type Arrow struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type Text struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

func (Pin) Kind() Kind       { return KindPin }
func (Rectangle) Kind() Kind { return KindRectangle }
func (Freehand) Kind() Kind  { return KindFreehand }
func (Arrow) Kind() Kind     { return KindArrow }
func (Text) Kind() Kind      { return KindText }

func inFrame(coords ...float64) error {
	for _, c := range coords {
		if c < 0 || c > 100 {
			return fmt.Errorf("coordinate %v outside frame percentage range", c)
		}
	}
	return nil
}

func (g Pin) validate() error {
	if g.Label < 1 {
		return fmt.Errorf("pin label must be positive")
	}
	return inFrame(g.X, g.Y)
}

func (g Rectangle) validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("rectangle needs positive extent")
	}
	return inFrame(g.X, g.Y, g.X+g.Width, g.Y+g.Height)
}

func (g Freehand) validate() error {
	if len(g.Points) < 2 {
		return fmt.Errorf("freehand needs at least 2 points")
	}
	for _, p := range g.Points {
		if err := inFrame(p.X, p.Y); err != nil {
			return err
		}
	}
	return nil
}

func (g Arrow) validate() error {
	return inFrame(g.X1, g.Y1, g.X2, g.Y2)
}

func (g Text) validate() error {
	if g.Text == "" {
		return fmt.Errorf("text annotation needs text")
	}
	return inFrame(g.X, g.Y)
}

// Length returns the arrow's Euclidean length in frame-percentage units.
func (g Arrow) Length() float64 {
	return math.Hypot(g.X2-g.X1, g.Y2-g.Y1)
}

// MarshalGeometry encodes a shape for the jsonb column. The kind is part of
// the envelope so rows stay self-describing.
func MarshalGeometry(g Geometry) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("nil geometry")
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	envelope := map[string]json.RawMessage{
		"kind": json.RawMessage(fmt.Sprintf("%q", g.Kind())),
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		envelope[k] = v
	}
	return json.Marshal(envelope)
}

// ParseGeometry decodes and validates a payload against the declared kind.
// Unknown fields for the kind are rejected so no partial shapes slip in.
func ParseGeometry(kind Kind, raw []byte) (Geometry, error) {
	var g Geometry
	switch kind {
	case KindPin:
		g = decodeStrict[Pin](raw)
	case KindRectangle:
		g = decodeStrict[Rectangle](raw)
	case KindFreehand:
		g = decodeStrict[Freehand](raw)
	case KindArrow:
		g = decodeStrict[Arrow](raw)
	case KindText:
		g = decodeStrict[Text](raw)
	default:
		return nil, fmt.Errorf("unknown annotation kind %q", kind)
	}
	if g == nil {
		return nil, fmt.Errorf("geometry payload does not match kind %q", kind)
	}
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s geometry: %w", kind, err)
	}
	return g, nil
}

func decodeStrict[T Geometry](raw []byte) Geometry {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	delete(envelope, "kind")
	clean, err := json.Marshal(envelope)
	if err != nil {
		return nil
	}
	var out T
	if err := json.Unmarshal(clean, &out); err != nil {
		return nil
	}
	// Round-trip to catch payload fields that do not belong to this kind.
	back, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	var a, b map[string]json.RawMessage
	if json.Unmarshal(clean, &a) != nil || json.Unmarshal(back, &b) != nil {
		return nil
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return nil
		}
	}
	return out
}
