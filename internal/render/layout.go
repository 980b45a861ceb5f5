package render

// Serpentine holds panel and row flip behaviors of the strip wiring.
type Serpentine struct {
	XFlipEveryRow   bool `json:"xFlipEveryRow,omitempty"`
	YFlipEveryPanel bool `json:"yFlipEveryPanel,omitempty"`
}

// Index maps x,y,z to the position of that pixel on the strip.
func (s Serpentine) Index(dim Dimensions, x, y, z int) int {
	xx, yy := x, y
	if s.XFlipEveryRow && y%2 == 1 {
		xx = dim.X - 1 - x
	}
	if s.YFlipEveryPanel && z%2 == 1 {
		yy = dim.Y - 1 - y
	}
	return z*dim.X*dim.Y + yy*dim.X + xx
}

// Wiring returns the strip position of every pixel in raster order, or nil
// when the strip follows raster order.
func (s Serpentine) Wiring(dim Dimensions) []int {
	if !s.XFlipEveryRow && !s.YFlipEveryPanel {
		return nil
	}
	out := make([]int, 0, dim.Count())
	for z := 0; z < dim.Z; z++ {
		for y := 0; y < dim.Y; y++ {
			for x := 0; x < dim.X; x++ {
				out = append(out, s.Index(dim, x, y, z))
			}
		}
	}
	return out
}
