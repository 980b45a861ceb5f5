package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ramp struct{}

func (ramp) Name() string         { return "ramp" }
func (ramp) Setup(*Frame)         {}
func (ramp) Parameters() []string { return nil }
func (ramp) Render(f *Frame) {
	for i := range f.Leds {
		f.Leds[i] = Color{R: float32(i) / 255}
	}
}

func TestSerpentineWiring(t *testing.T) {
	dim := Dimensions{X: 3, Y: 2, Z: 2}
	assert.Nil(t, Serpentine{}.Wiring(dim))

	rows := Serpentine{XFlipEveryRow: true}
	assert.Equal(t, []int{0, 1, 2, 5, 4, 3, 6, 7, 8, 11, 10, 9}, rows.Wiring(dim))

	panels := Serpentine{YFlipEveryPanel: true}
	assert.Equal(t, 9, panels.Index(dim, 0, 0, 1))
	assert.Equal(t, 6, panels.Index(dim, 0, 1, 1))
}

func TestEngineWritesInWiringOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(ramp{})
	drv := &fakeDriver{}
	e, err := NewEngine(reg, drv, Dimensions{X: 3, Y: 2, Z: 1}, 0, nil)
	require.NoError(t, err)
	e.SetPost(PostPipeline{})
	e.SetLayout(Serpentine{XFlipEveryRow: true})

	require.NoError(t, e.RenderOnce(time.Now()))
	reds := make([]byte, 0, 6)
	for i := 0; i < len(drv.last); i += 3 {
		reds = append(reds, drv.last[i])
	}
	assert.Equal(t, []byte{0, 1, 2, 5, 4, 3}, reds)

	preview := e.PreviewRGB()
	assert.Equal(t, byte(3), preview[9], "preview stays in raster order")

	require.NoError(t, e.SetDimensions(Dimensions{X: 4, Y: 1, Z: 1}, 0))
	require.NoError(t, e.RenderOnce(time.Now()))
	assert.Equal(t, byte(3), drv.last[9])
}
