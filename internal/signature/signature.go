// Package signature holds the freehand sign-off payload. Coordinates are
// normalized to the unit square so the stroke data is independent of the
// canvas it was drawn on.
package signature

import "math"

const (
	Version = 1

	// MaxStrokes and MaxPoints bound the stored payload. Input beyond either
	// limit is truncated, never rejected.
	MaxStrokes = 8
	MaxPoints  = 250
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stroke struct {
	Points []Point `json:"points"`
}

type Signature struct {
	Version int      `json:"version"`
	Strokes []Stroke `json:"strokes"`
}

// IsEmpty reports whether the signature has no drawable strokes.
func (s Signature) IsEmpty() bool {
	for _, st := range s.Strokes {
		if len(st.Points) > 0 {
			return false
		}
	}
	return true
}

// PointCount returns the total number of points across all strokes.
func (s Signature) PointCount() int {
	n := 0
	for _, st := range s.Strokes {
		n += len(st.Points)
	}
	return n
}

// Sanitize returns a copy of s clamped to [0,1] with empty strokes removed and
// the stroke and point caps applied. Points past the cap are dropped from the
// tail, so the last kept stroke may be cut short.
func Sanitize(s Signature) Signature {
	out := Signature{Version: Version, Strokes: []Stroke{}}
	budget := MaxPoints
	for _, st := range s.Strokes {
		if len(out.Strokes) == MaxStrokes || budget == 0 {
			break
		}
		if len(st.Points) == 0 {
			continue
		}
		n := min(len(st.Points), budget)
		points := make([]Point, n)
		for i := range n {
			points[i] = Point{X: clamp(st.Points[i].X), Y: clamp(st.Points[i].Y)}
		}
		out.Strokes = append(out.Strokes, Stroke{Points: points})
		budget -= n
	}
	return out
}

// Normalize converts strokes captured in canvas pixels of the given size into
// a sanitized signature.
func Normalize(strokes [][]Point, width, height float64) Signature {
	raw := Signature{Version: Version}
	for _, pts := range strokes {
		st := Stroke{Points: make([]Point, 0, len(pts))}
		for _, p := range pts {
			st.Points = append(st.Points, Point{X: ratio(p.X, width), Y: ratio(p.Y, height)})
		}
		raw.Strokes = append(raw.Strokes, st)
	}
	return Sanitize(raw)
}

func ratio(v, size float64) float64 {
	if size <= 0 {
		return 0
	}
	return v / size
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
