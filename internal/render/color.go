package render

import "math"

// HSV converts 8 bit hue, saturation and value to a Color.
func HSV(h, s, v uint8) Color {
	r, g, b := hsvToRGB(float64(h)/256, float64(s)/255, float64(v)/255)
	return Color{float32(r), float32(g), float32(b)}
}

func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	p := v * (1.0 - s)
	q := v * (1.0 - f*s)
	t := v * (1.0 - (1.0-f)*s)
	switch i % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

// Add saturates at full scale per channel.
func (c Color) Add(o Color) Color {
	return Color{clamp01(c.R + o.R), clamp01(c.G + o.G), clamp01(c.B + o.B)}
}

// Max keeps the brighter value of each channel.
func (c Color) Max(o Color) Color {
	return Color{max32(c.R, o.R), max32(c.G, o.G), max32(c.B, o.B)}
}

// Scale multiplies every channel by s.
func (c Color) Scale(s float32) Color { return Color{c.R * s, c.G * s, c.B * s} }

// Bytes returns the color as 8 bit channels.
func (c Color) Bytes() (byte, byte, byte) {
	return toByte(c.R), toByte(c.G), toByte(c.B)
}

// FadeToBlackBy dims every pixel by amount/256.
func FadeToBlackBy(leds []Color, amount uint8) {
	s := 1 - float32(amount)/256
	for i := range leds {
		leds[i] = leds[i].Scale(s)
	}
}

// BeatSin oscillates between lo and hi at bpm beats per minute.
func BeatSin(bpm, t float64, lo, hi int) int {
	phase := math.Sin(2 * math.Pi * bpm / 60 * t)
	return lo + int(math.Round(float64(hi-lo)*(phase+1)/2))
}

// partyColors is the 16 entry party palette, 0xRRGGBB.
var partyColors = [16]uint32{
	0x5500AB, 0x84007C, 0xB5004B, 0xE5001B,
	0xE81700, 0xB84700, 0xAB7700, 0xABAB00,
	0xAB5500, 0xDD2200, 0xF2000E, 0xC2003E,
	0x8F0071, 0x5F00A1, 0x2F00D0, 0x0007F9,
}

// PartyColor blends the party palette at index (0..255) and scales it by bri.
func PartyColor(index, bri uint8) Color {
	lo := partyColors[index>>4]
	hi := partyColors[(index>>4+1)&15]
	f := float32(index&15) / 16
	a, b := rgb24(lo), rgb24(hi)
	c := Color{a.R + (b.R-a.R)*f, a.G + (b.G-a.G)*f, a.B + (b.B-a.B)*f}
	return c.Scale(float32(bri) / 255)
}

func rgb24(v uint32) Color {
	return Color{float32(v>>16&0xFF) / 255, float32(v>>8&0xFF) / 255, float32(v&0xFF) / 255}
}

func toByte(x float32) byte { return byte(clamp01(x)*255 + 0.5) }

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
