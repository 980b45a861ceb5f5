package render

import "testing"

func TestDefaultLimiterBudgetClamp(t *testing.T) {
	// 10 voxels all white
	buf := make([]Color, 10)
	for i := range buf {
		buf[i] = Color{1, 1, 1}
	}
	u := &Uniforms{Params: map[string]float64{
		"LEDChan_mA":  20,  // 60mA at white per LED
		"Budget_mA":   300, // allow 300 mA total
		"WhiteCap":    3.0,
		"LimiterKnee": 0.9,
	}}

	// pre-limit current would be 10 * 60 = 600 mA
	DefaultLimiter(buf, u)
	if cur := EstimateCurrent(buf, 20); cur > 300.1 {
		t.Fatalf("expected <= 300mA after limit, got %.2f mA", cur)
	}
}

func TestWhiteCap(t *testing.T) {
	buf := []Color{{1, 1, 1}}
	u := &Uniforms{Params: map[string]float64{"WhiteCap": 1.5}}
	DefaultLimiter(buf, u)
	if sum := buf[0].R + buf[0].G + buf[0].B; sum > 1.5001 {
		t.Fatalf("expected sum <= 1.5, got %f", sum)
	}
}

func TestLimiterWithoutParams(t *testing.T) {
	buf := []Color{{1, 1, 1}}
	DefaultLimiter(buf, &Uniforms{})
	if buf[0] != (Color{1, 1, 1}) {
		t.Fatalf("expected untouched frame, got %#v", buf[0])
	}
}
