package render

// ApplyBrightness scales the frame by u.GlobalBrightness (0..1).
func ApplyBrightness(buf []Color, u *Uniforms) {
	if u == nil || u.GlobalBrightness >= 1 {
		return
	}
	applyGlobalScale(buf, float32(u.GlobalBrightness))
}

// DefaultLimiter applies a two-stage limiter:
// 1) Per-LED "white cap": scales (R,G,B) so R+G+B <= WhiteCap (default 3.0 = no cap)
// 2) Global current budget: estimates current and scales the whole frame to stay under Budget_mA
//
// Parameters (read from uniforms.Params):
//   - "WhiteCap" (sum of channels cap in linear space, default 3.0)
//   - "LEDChan_mA" (mA per color channel at full scale; WS2812 ≈ 20, default 20)
//   - "Budget_mA" (global budget in mA; if 0 or missing, limiter returns immediately)
//   - "LimiterKnee" (fraction of budget where soft limiting begins; default 0.9)
func DefaultLimiter(buf []Color, u *Uniforms) {
	if u == nil || u.Params == nil {
		return
	}

	whiteCap := 3.0
	chanmA := 20.0
	budget := 0.0
	knee := 0.9
	if v, ok := u.Params["WhiteCap"]; ok && v > 0 {
		whiteCap = v
	}
	if v, ok := u.Params["LEDChan_mA"]; ok && v > 0 {
		chanmA = v
	}
	if v, ok := u.Params["Budget_mA"]; ok && v > 0 {
		budget = v
	}
	if v, ok := u.Params["LimiterKnee"]; ok && v > 0 && v < 1 {
		knee = v
	}

	wc := float32(whiteCap)
	for i := range buf {
		s := buf[i].R + buf[i].G + buf[i].B
		if s > wc && s > 0 {
			buf[i] = buf[i].Scale(wc / s)
		}
	}

	if budget <= 0 {
		return
	}
	total := EstimateCurrent(buf, chanmA)
	if total <= 0 {
		return
	}
	// soft knee between knee*budget and budget, hard scale above
	ratio := total / budget
	if ratio <= 1.0 {
		if ratio <= knee {
			return
		}
		minS := budget / total
		t := (ratio - knee) / (1.0 - knee)
		applyGlobalScale(buf, float32(1.0-t*(1.0-minS)))
		return
	}
	applyGlobalScale(buf, float32(budget/total))
}

// EstimateCurrent returns the frame current in mA for chanmA per full channel.
func EstimateCurrent(buf []Color, chanmA float64) float64 {
	var total float64
	cm := float32(chanmA)
	for i := range buf {
		total += float64((buf[i].R + buf[i].G + buf[i].B) * cm)
	}
	return total
}

func applyGlobalScale(buf []Color, s float32) {
	if s >= 1.0 {
		return
	}
	for i := range buf {
		buf[i] = buf[i].Scale(s)
	}
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
