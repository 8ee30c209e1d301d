package ops

// ClassMap is a discrete per-pixel class-index map, row-major. Index 0 is
// reserved for background.
type ClassMap struct {
	W, H    int
	Classes []int32
}

// NewClassMap allocates an all-background map.
func NewClassMap(w, h int) ClassMap {
	return ClassMap{W: w, H: h, Classes: make([]int32, w*h)}
}

func (m ClassMap) At(x, y int) int32 { return m.Classes[y*m.W+x] }

func (m ClassMap) Set(x, y int, c int32) { m.Classes[y*m.W+x] = c }

// Foreground counts the non-background pixels.
func (m ClassMap) Foreground() int {
	n := 0
	for _, c := range m.Classes {
		if c != 0 {
			n++
		}
	}
	return n
}
