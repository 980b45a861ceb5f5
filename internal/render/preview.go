package render

import "time"

// PreviewKind is the first byte of a binary preview frame.
const PreviewKind = 1

// PreviewInterval paces preview pushes by pixel and client count.
func PreviewInterval(leds, clients int) time.Duration {
	units := leds * clients / 200
	if units < 16 {
		units = 16
	}
	return time.Duration(units) * 10 * time.Millisecond
}

// PreviewFrame builds [kind, x, y, z, interval/10ms, rgb...].
func PreviewFrame(dim Dimensions, interval time.Duration, rgb []byte) []byte {
	buf := make([]byte, 5, 5+len(rgb))
	buf[0] = PreviewKind
	buf[1] = clampByte(dim.X)
	buf[2] = clampByte(dim.Y)
	buf[3] = clampByte(dim.Z)
	buf[4] = clampByte(int(interval / (10 * time.Millisecond)))
	return append(buf, rgb...)
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
