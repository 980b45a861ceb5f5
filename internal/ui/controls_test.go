package ui

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/ledfix/internal/model"
)

func TestInitModuleKeepsBand(t *testing.T) {
	f := newFixture(t)
	mod := f.c.InitModule("Fixture", 4100, nil)
	require.NotNil(t, mod)
	assert.Equal(t, -4100, mod.Order)

	f.m.Store.BeginPass()
	mod = f.c.InitModule("Fixture", 4100, nil)
	assert.Equal(t, -4100, mod.Order)
	assert.True(t, mod.Seen())
}

func TestInitVarAndUpdateKeepsLoadedValue(t *testing.T) {
	f := newFixture(t)
	r := &recorder{}
	bri := f.c.InitSlider(nil, "bri", 10, 0, 255, false, nil)
	bri.SetValue(200.0, model.NoRow)

	again := f.c.InitSlider(nil, "bri", 10, 0, 255, false, r.fun)
	assert.Same(t, bri, again)
	assert.Equal(t, 200.0, bri.Value(model.NoRow))
	assert.Equal(t, 1, r.count(model.ChangeFun), "the loaded value is pushed to the function")

	min, _ := bri.Attr("min")
	max, _ := bri.Attr("max")
	assert.Equal(t, 0, min)
	assert.Equal(t, 255, max)
}

func TestInitControlsTypes(t *testing.T) {
	f := newFixture(t)
	mod := f.c.InitModule("Leds", 4200, nil)
	tests := []struct {
		v    *model.Variable
		typ  string
		ro   bool
		want any
	}{
		{f.c.InitCheckBox(mod, "on", true, false, nil), model.TypeCheckbox, false, true},
		{f.c.InitNumber(mod, "fps", 60, 1, 999, false, nil), model.TypeNumber, false, 60},
		{f.c.InitText(mod, "realFps", "", 10, true, nil), model.TypeText, true, ""},
		{f.c.InitCoord3D(mod, "fixSize", Coord3D{8, 8, 1}, 0, 127, true, nil), model.TypeCoord3D, true, map[string]any{"x": 8, "y": 8, "z": 1}},
		{f.c.InitDisplay(mod, "uptime", nil), model.TypeDisplay, true, nil},
		{f.c.InitCanvas(mod, "pview", true, nil), model.TypeCanvas, true, nil},
	}
	for _, tt := range tests {
		require.NotNil(t, tt.v)
		assert.Equal(t, tt.typ, tt.v.Type, tt.v.ID)
		assert.Equal(t, tt.ro, tt.v.ReadOnly, tt.v.ID)
		assert.Equal(t, tt.want, tt.v.Value(model.NoRow), tt.v.ID)
		assert.Same(t, mod, tt.v.Parent())
	}
}

func TestInitReturnsNilOnRejectedConflict(t *testing.T) {
	l := zerolog.Nop()
	m := model.New(model.Options{Logger: &l, Conflict: model.ConflictReject})
	c := NewControls(m)
	a := c.InitGroup(nil, "a", nil)
	b := c.InitGroup(nil, "b", nil)
	require.NotNil(t, c.InitNumber(a, "x", 1, 0, 9, false, nil))
	assert.Nil(t, c.InitNumber(b, "x", 1, 0, 9, false, nil))
}

func TestDescribe(t *testing.T) {
	f := newFixture(t)
	f.c.InitSlider(nil, "bri", 10, 0, 255, false, Describe(f.m, "Brightness", "0 to 255"))
	frag, ok := f.m.Resp.Get("bri")
	require.True(t, ok)
	assert.Equal(t, "Brightness", frag["label"])
	assert.Equal(t, "0 to 255", frag["comment"])
}
