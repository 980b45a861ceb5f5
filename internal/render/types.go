package render

import "math/rand"

// Color is a linear RGB value, each channel in 0..1.
type Color struct{ R, G, B float32 }

type Dimensions struct{ X, Y, Z int }

// Count returns the number of pixels covered by d.
func (d Dimensions) Count() int { return d.X * d.Y * d.Z }

// Uniforms carries the values shared by the post stages.
type Uniforms struct {
	GlobalBrightness float64
	Params           map[string]float64
}

// Frame is the state an effect draws into. Leds keeps its content between
// frames so effects can fade trails.
type Frame struct {
	Leds  []Color
	Dim   Dimensions
	Hue   uint8   // rotating base color
	Call  uint64  // frames rendered since start
	T     float64 // seconds since start
	Rand  *rand.Rand
	Param map[string]float64
}

// Effect draws one animation frame at a time.
type Effect interface {
	Name() string
	Setup(f *Frame)
	Render(f *Frame)
	Parameters() []string
}

// Registry keeps effects in registration order; the index is what the
// fx select stores.
type Registry struct{ list []Effect }

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(e Effect) {
	if e == nil {
		return
	}
	r.list = append(r.list, e)
}

func (r *Registry) Get(i int) (Effect, bool) {
	if i < 0 || i >= len(r.list) {
		return nil, false
	}
	return r.list[i], true
}

func (r *Registry) Len() int { return len(r.list) }

func (r *Registry) Names() []string {
	out := make([]string, len(r.list))
	for i, e := range r.list {
		out[i] = e.Name()
	}
	return out
}

// Defaults returns a registry with the built-in effects.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(Rainbow{})
	r.Register(Glitter{})
	r.Register(Sinelon{})
	r.Register(Running{})
	r.Register(Confetti{})
	r.Register(&BPM{BeatsPerMinute: 62})
	r.Register(Juggle{})
	r.Register(Ripples3D{})
	r.Register(SphereMove3D{})
	return r
}
