package docmodel

// BoxScale is the coordinate range used by layout-aware models.
const BoxScale = 1000

// NormalizedVertex is a point in [0,1] page-relative coordinates.
type NormalizedVertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingPoly is a quadrilateral in normalized coordinates.
type BoundingPoly struct {
	Vertices []NormalizedVertex `json:"normalized_vertices"`
}

// Box converts the polygon to an axis-aligned [x0, y0, x1, y1] box scaled
// to 0..BoxScale. Values are truncated, then clamped. ok is false for an
// empty polygon.
func (p BoundingPoly) Box() (box [4]int, ok bool) {
	if len(p.Vertices) == 0 {
		return box, false
	}
	minX, minY := p.Vertices[0].X, p.Vertices[0].Y
	maxX, maxY := minX, minY
	for _, v := range p.Vertices[1:] {
		minX = min(minX, v.X)
		minY = min(minY, v.Y)
		maxX = max(maxX, v.X)
		maxY = max(maxY, v.Y)
	}
	return [4]int{scale(minX), scale(minY), scale(maxX), scale(maxY)}, true
}

func scale(v float64) int {
	n := int(v * BoxScale)
	return max(0, min(BoxScale, n))
}

// RectPoly builds a four-vertex polygon from normalized edges.
func RectPoly(x0, y0, x1, y1 float64) BoundingPoly {
	return BoundingPoly{Vertices: []NormalizedVertex{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1},
	}}
}
