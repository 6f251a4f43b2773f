package signature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(n int) Stroke {
	st := Stroke{}
	for i := range n {
		st.Points = append(st.Points, Point{X: float64(i) / float64(n), Y: 0.5})
	}
	return st
}

func TestSanitizeClampsCoordinates(t *testing.T) {
	sig := Sanitize(Signature{Strokes: []Stroke{{Points: []Point{{X: -0.2, Y: 1.7}, {X: math.NaN(), Y: 0.3}}}}})

	require.Len(t, sig.Strokes, 1)
	assert.Equal(t, Version, sig.Version)
	assert.Equal(t, Point{X: 0, Y: 1}, sig.Strokes[0].Points[0])
	assert.Equal(t, Point{X: 0, Y: 0.3}, sig.Strokes[0].Points[1])
}

func TestSanitizeTruncatesStrokes(t *testing.T) {
	raw := Signature{}
	for range 12 {
		raw.Strokes = append(raw.Strokes, line(3))
	}

	sig := Sanitize(raw)
	assert.Len(t, sig.Strokes, MaxStrokes)
	assert.Equal(t, MaxStrokes*3, sig.PointCount())
}

func TestSanitizeTruncatesPoints(t *testing.T) {
	raw := Signature{Strokes: []Stroke{line(200), line(100), line(10)}}

	sig := Sanitize(raw)
	require.Len(t, sig.Strokes, 2)
	assert.Len(t, sig.Strokes[0].Points, 200)
	assert.Len(t, sig.Strokes[1].Points, 50)
	assert.Equal(t, MaxPoints, sig.PointCount())
}

func TestSanitizeDropsEmptyStrokes(t *testing.T) {
	sig := Sanitize(Signature{Strokes: []Stroke{{}, line(2), {Points: []Point{}}}})
	assert.Len(t, sig.Strokes, 1)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, Signature{}.IsEmpty())
	assert.True(t, Signature{Strokes: []Stroke{{}}}.IsEmpty())
	assert.False(t, Signature{Strokes: []Stroke{line(1)}}.IsEmpty())
}

func TestNormalize(t *testing.T) {
	sig := Normalize([][]Point{{{X: 150, Y: 50}, {X: 400, Y: 120}}}, 300, 100)

	require.Len(t, sig.Strokes, 1)
	assert.Equal(t, Point{X: 0.5, Y: 0.5}, sig.Strokes[0].Points[0])
	assert.Equal(t, Point{X: 1, Y: 1}, sig.Strokes[0].Points[1])
}

func TestNormalizeZeroCanvas(t *testing.T) {
	sig := Normalize([][]Point{{{X: 10, Y: 10}}}, 0, 0)
	assert.Equal(t, Point{}, sig.Strokes[0].Points[0])
}
