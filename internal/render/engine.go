package render

import (
	"errors"
	"math/rand"
	"time"
)

// Driver is the LED sink frames are written to.
type Driver interface {
	Write(rgb []byte) error
}

// PostPipeline groups post stages; all are optional.
type PostPipeline struct {
	Brightness func([]Color, *Uniforms)
	Limiter    func([]Color, *Uniforms)
}

// Engine renders the active effect into a frame, runs the post stages on
// a copy and writes the result to the driver.
type Engine struct {
	Reg *Registry
	Drv Driver
	U   *Uniforms

	frame  Frame
	out    []Color
	rgb    []byte
	active int
	fps    int
	wiring []int // strip position per pixel, nil for raster order

	post PostPipeline
	t0   time.Time
	last time.Time

	frames int

	// metrics (last durations in ms)
	Last struct {
		RenderMS float64
	}
}

// NewEngine allocates buffers for dim, capped at maxLeds pixels.
func NewEngine(reg *Registry, drv Driver, dim Dimensions, maxLeds int, u *Uniforms) (*Engine, error) {
	if reg == nil || reg.Len() == 0 {
		return nil, errors.New("no effects registered")
	}
	if u == nil {
		u = &Uniforms{GlobalBrightness: 1, Params: map[string]float64{}}
	}
	e := &Engine{
		Reg: reg,
		Drv: drv,
		U:   u,
		fps: 40,
		post: PostPipeline{
			Brightness: ApplyBrightness,
			Limiter:    DefaultLimiter,
		},
		t0: time.Now(),
	}
	e.frame.Rand = rand.New(rand.NewSource(1))
	e.frame.Param = map[string]float64{}
	if err := e.SetDimensions(dim, maxLeds); err != nil {
		return nil, err
	}
	return e, nil
}

// SetLayout sets the strip wiring for the current dimensions.
func (e *Engine) SetLayout(s Serpentine) {
	e.wiring = s.Wiring(e.frame.Dim)
	if len(e.wiring) != len(e.frame.Leds) {
		e.wiring = nil
	}
}

// SetDimensions resizes the buffers and resets the wiring to raster order.
// The pixel count is capped at maxLeds.
func (e *Engine) SetDimensions(dim Dimensions, maxLeds int) error {
	n := dim.Count()
	if n <= 0 {
		return errors.New("invalid dimensions")
	}
	if maxLeds > 0 && n > maxLeds {
		n = maxLeds
	}
	e.frame.Dim = dim
	e.frame.Leds = make([]Color, n)
	e.out = make([]Color, n)
	e.rgb = make([]byte, 3*n)
	e.wiring = nil
	return nil
}

// Count returns the number of pixels rendered.
func (e *Engine) Count() int { return len(e.frame.Leds) }

// Dim returns the fixture dimensions.
func (e *Engine) Dim() Dimensions { return e.frame.Dim }

func (e *Engine) SetPost(p PostPipeline) { e.post = p }

// SetFPS sets the target frame rate; values below 1 stop rendering.
func (e *Engine) SetFPS(fps int) { e.fps = fps }

// SetActive selects the effect at index i and runs its Setup.
func (e *Engine) SetActive(i int) error {
	fx, ok := e.Reg.Get(i)
	if !ok {
		return errors.New("effect index out of range")
	}
	e.active = i
	fx.Setup(&e.frame)
	return nil
}

func (e *Engine) Active() int { return e.active }

// SetParam updates an effect parameter.
func (e *Engine) SetParam(name string, v float64) { e.frame.Param[name] = v }

// Due reports whether a frame should be rendered at now.
func (e *Engine) Due(now time.Time) bool {
	if e.fps < 1 {
		return false
	}
	return now.Sub(e.last) >= time.Second/time.Duration(e.fps)
}

// RenderOnce renders one frame for now and writes it to the driver.
func (e *Engine) RenderOnce(now time.Time) error {
	start := time.Now()
	e.last = now
	since := now.Sub(e.t0)
	e.frame.T = since.Seconds()
	// base hue advances every 20ms
	e.frame.Hue = uint8(since / (20 * time.Millisecond))

	if fx, ok := e.Reg.Get(e.active); ok {
		fx.Render(&e.frame)
	}
	e.frame.Call++
	e.frames++

	copy(e.out, e.frame.Leds)
	if e.post.Brightness != nil {
		e.post.Brightness(e.out, e.U)
	}
	if e.post.Limiter != nil {
		e.post.Limiter(e.out, e.U)
	}
	encodeWired(e.rgb, e.out, e.wiring)

	if e.Drv != nil {
		if err := e.Drv.Write(e.rgb); err != nil {
			return err
		}
	}
	e.Last.RenderMS = float64(time.Since(start).Microseconds()) / 1000.0
	return nil
}

// Output returns the bytes last written to the driver.
func (e *Engine) Output() []byte { return e.rgb }

// PreviewRGB encodes the frame before the post stages, as clients show it.
func (e *Engine) PreviewRGB() []byte {
	out := make([]byte, 3*len(e.frame.Leds))
	encode(out, e.frame.Leds)
	return out
}

// Frames returns the frames rendered since the last call and resets the count.
func (e *Engine) Frames() int {
	n := e.frames
	e.frames = 0
	return n
}

// Clear blanks the frame.
func (e *Engine) Clear() {
	e.frame.blank()
}

func encodeWired(dst []byte, buf []Color, wiring []int) {
	if wiring == nil {
		encode(dst, buf)
		return
	}
	for i, c := range buf {
		j := wiring[i] * 3
		dst[j], dst[j+1], dst[j+2] = c.Bytes()
	}
}

func encode(dst []byte, buf []Color) {
	for i, c := range buf {
		dst[i*3], dst[i*3+1], dst[i*3+2] = c.Bytes()
	}
}
