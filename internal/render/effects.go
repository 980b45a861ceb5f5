package render

import "math"

// Rainbow fills the strip with a rainbow that rotates with the base hue.
type Rainbow struct{}

func (Rainbow) Name() string         { return "Rainbow" }
func (Rainbow) Setup(*Frame)         {}
func (Rainbow) Parameters() []string { return nil }
func (Rainbow) Render(f *Frame) {
	h := f.Hue
	for i := range f.Leds {
		f.Leds[i] = HSV(h, 255, 255)
		h += 7
	}
}

// Glitter is Rainbow with random white sparkles.
type Glitter struct{ Rainbow }

func (Glitter) Name() string { return "Rainbow with glitter" }
func (g Glitter) Render(f *Frame) {
	g.Rainbow.Render(f)
	if len(f.Leds) > 0 && f.Rand.Intn(256) < 80 {
		i := f.Rand.Intn(len(f.Leds))
		f.Leds[i] = f.Leds[i].Add(Color{1, 1, 1})
	}
}

// Sinelon sweeps a dot back and forth, leaving a fading trail.
type Sinelon struct{}

func (Sinelon) Name() string         { return "Sinelon" }
func (Sinelon) Setup(*Frame)         {}
func (Sinelon) Parameters() []string { return nil }
func (Sinelon) Render(f *Frame) {
	if len(f.Leds) == 0 {
		return
	}
	FadeToBlackBy(f.Leds, 20)
	pos := BeatSin(13, f.T, 0, len(f.Leds)-1)
	f.Leds[pos] = f.Leds[pos].Add(HSV(f.Hue, 255, 192))
}

// Running moves one dot a pixel per frame.
type Running struct{}

func (Running) Name() string         { return "Running" }
func (Running) Setup(*Frame)         {}
func (Running) Parameters() []string { return nil }
func (Running) Render(f *Frame) {
	if len(f.Leds) == 0 {
		return
	}
	FadeToBlackBy(f.Leds, 70)
	f.Leds[f.Call%uint64(len(f.Leds))] = HSV(f.Hue, 255, 192)
}

// Confetti blinks in random colored speckles that fade out.
type Confetti struct{}

func (Confetti) Name() string         { return "Confetti" }
func (Confetti) Setup(*Frame)         {}
func (Confetti) Parameters() []string { return nil }
func (Confetti) Render(f *Frame) {
	if len(f.Leds) == 0 {
		return
	}
	FadeToBlackBy(f.Leds, 10)
	pos := f.Rand.Intn(len(f.Leds))
	f.Leds[pos] = f.Leds[pos].Add(HSV(f.Hue+uint8(f.Rand.Intn(64)), 200, 255))
}

// BPM pulses palette stripes at a fixed tempo.
type BPM struct{ BeatsPerMinute float64 }

func (*BPM) Name() string         { return "Beats per minute" }
func (*BPM) Setup(*Frame)         {}
func (*BPM) Parameters() []string { return []string{"BeatsPerMinute"} }
func (b *BPM) Render(f *Frame) {
	bpm := b.BeatsPerMinute
	if v, ok := f.Param["BeatsPerMinute"]; ok && v > 0 {
		bpm = v
	}
	beat := uint8(BeatSin(bpm, f.T, 64, 255))
	for i := range f.Leds {
		f.Leds[i] = PartyColor(f.Hue+uint8(i*2), beat-f.Hue+uint8(i*10))
	}
}

// Juggle weaves eight colored dots in and out of sync.
type Juggle struct{}

func (Juggle) Name() string         { return "Juggle" }
func (Juggle) Setup(*Frame)         {}
func (Juggle) Parameters() []string { return nil }
func (Juggle) Render(f *Frame) {
	if len(f.Leds) == 0 {
		return
	}
	FadeToBlackBy(f.Leds, 20)
	var hue uint8
	for i := 0; i < 8; i++ {
		pos := BeatSin(float64(i+7), f.T, 0, len(f.Leds)-1)
		f.Leds[pos] = f.Leds[pos].Max(HSV(hue, 200, 255))
		hue += 32
	}
}

// set writes c at x,y,z when the pixel exists in the frame.
func (f *Frame) set(x, y, z int, c Color) {
	if x < 0 || y < 0 || z < 0 || x >= f.Dim.X || y >= f.Dim.Y || z >= f.Dim.Z {
		return
	}
	if i := x + y*f.Dim.X + z*f.Dim.X*f.Dim.Y; i < len(f.Leds) {
		f.Leds[i] = c
	}
}

func (f *Frame) blank() {
	for i := range f.Leds {
		f.Leds[i] = Color{}
	}
}

// Ripples3D raises a sine surface over the x,z plane, one pixel high per column.
type Ripples3D struct{}

func (Ripples3D) Name() string         { return "Ripples 3D" }
func (Ripples3D) Setup(*Frame)         {}
func (Ripples3D) Parameters() []string { return nil }
func (Ripples3D) Render(f *Frame) {
	f.blank()
	const interval = 1.3
	w, h, d := f.Dim.X, f.Dim.Y, f.Dim.Z
	phase := float64(f.Call) / ((256 - 128) / 20.0)
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			dist := math.Hypot(3.5-float64(x), 3.5-float64(z)) / 9.899495 * float64(h)
			y := int(math.Floor(float64(h)/2 + math.Sin(dist/interval+phase)*float64(h)/2))
			if y >= h {
				y = h - 1
			}
			f.set(x, y, z, HSV(f.Hue+uint8(f.Rand.Intn(64)), 200, 255))
		}
	}
}

// SphereMove3D draws a pulsing sphere shell orbiting the fixture center.
type SphereMove3D struct{}

func (SphereMove3D) Name() string         { return "SphereMove 3D" }
func (SphereMove3D) Setup(*Frame)         {}
func (SphereMove3D) Parameters() []string { return nil }
func (SphereMove3D) Render(f *Frame) {
	f.blank()
	t := float64(f.Call) / ((256 - 128) / 20.0)
	ox := 3.5 + math.Sin(t)*2.5
	oy := 3.5 + math.Cos(t)*2.5
	oz := 3.5 + math.Cos(t)*2.0
	diameter := 2.0 + math.Sin(t/3)
	for z := 0; z < f.Dim.Z; z++ {
		for y := 0; y < f.Dim.Y; y++ {
			for x := 0; x < f.Dim.X; x++ {
				dx, dy, dz := float64(x)-ox, float64(y)-oy, float64(z)-oz
				dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
				if dist > diameter && dist < diameter+1 {
					f.set(x, y, z, HSV(f.Hue+uint8(f.Rand.Intn(64)), 200, 255))
				}
			}
		}
	}
}
