package app

import (
	"math"
	"time"

	"github.com/coreman2200/ledfix/internal/files"
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/render"
	"github.com/coreman2200/ledfix/internal/ui"
)

// fixtureMatch selects fixture definition files in the data directory.
const fixtureMatch = "D"

// Pusher sends binary frames to every connected client.
type Pusher interface {
	BroadcastBinary(data []byte)
	ClientCount() int
}

// FixtureDef is a fixture definition file. Size wins over the length of Map.
type FixtureDef struct {
	Name   string            `json:"name"`
	Scale  string            `json:"scale,omitempty"`
	Size   *ui.Coord3D       `json:"size,omitempty"`
	Map    [][]float64       `json:"map,omitempty"`
	Wiring render.Serpentine `json:"wiring,omitempty"`
}

// Dimensions returns the pixel grid of the fixture.
func (d FixtureDef) Dimensions() render.Dimensions {
	if d.Size != nil {
		dim := render.Dimensions{X: d.Size.X, Y: d.Size.Y, Z: d.Size.Z}
		if dim.Count() > 0 {
			return dim
		}
	}
	return render.Dimensions{X: len(d.Map), Y: 1, Z: 1}
}

// Fixture owns the output stage: power, brightness, size and the preview.
type Fixture struct {
	base
	eng     *render.Engine
	dir     *files.Dir
	push    Pusher
	maxLeds int

	on  bool
	bri int
}

func NewFixture(m *model.Model, eng *render.Engine, dir *files.Dir, push Pusher, maxLeds int) *Fixture {
	return &Fixture{
		base:    newBase(m, "Fixture", orderFixture),
		eng:     eng,
		dir:     dir,
		push:    push,
		maxLeds: maxLeds,
		on:      true,
	}
}

func (f *Fixture) Setup(c *ui.Controls) {
	f.setupModule(c, "")

	c.InitCheckBox(f.parent, "on", true, false, varFun{
		ui: labeled(f.m, "On", ""),
		change: func(v *model.Variable, _ uint8) {
			f.on = v.Bool(model.NoRow)
			f.applyBrightness()
		},
	}.fun())

	if bri := c.InitSlider(f.parent, "bri", 10, 0, 255, false, varFun{
		ui: labeled(f.m, "Brightness", ""),
		change: func(v *model.Variable, _ uint8) {
			f.bri = v.Int(model.NoRow)
			f.applyBrightness()
		},
	}.fun()); bri != nil {
		bri.SetAttr("log", true)
		bri.SetAttr("stage", true)
	}

	c.InitCanvas(f.parent, "pview", true, varFun{
		ui:   labeled(f.m, "Preview", ""),
		loop: f.preview,
	}.fun())

	dim := f.eng.Dim()
	c.InitCoord3D(f.parent, "fixSize", ui.Coord3D{X: dim.X, Y: dim.Y, Z: dim.Z}, 0, 255, true,
		varFun{ui: labeled(f.m, "Size", "")}.fun())
	c.InitNumber(f.parent, "fixCount", f.eng.Count(), 0, f.maxLeds, true, varFun{
		ui: func(v *model.Variable) {
			f.m.Resp.Add(v.ID, "label", "Count")
			f.m.Resp.AddV(v.ID, "comment", "Max %d", f.maxLeds)
		},
	}.fun())
	// after fixSize and fixCount: loading a fixture writes both
	c.InitSelect(f.parent, "fixture", 0, false, varFun{
		ui:     f.describeFixtures,
		change: func(v *model.Variable, _ uint8) { f.load(v.Int(model.NoRow)) },
	}.fun())

	c.InitNumber(f.parent, "fps", 60, 1, 999, false, varFun{
		ui:     labeled(f.m, "FPS", "Frames per second"),
		change: func(v *model.Variable, _ uint8) { f.eng.SetFPS(v.Int(model.NoRow)) },
	}.fun())
	c.InitText(f.parent, "realFps", "", 10, true, varFun{ui: labeled(f.m, "Real FPS", "")}.fun())
}

// applyBrightness maps bri logarithmically onto the global brightness.
func (f *Fixture) applyBrightness() {
	if !f.on {
		f.eng.U.GlobalBrightness = 0
		return
	}
	f.eng.U.GlobalBrightness = float64(LogBrightness(f.bri)) / 255
}

// LogBrightness maps a 0..255 slider value onto 0..255 on a log scale.
func LogBrightness(v int) int {
	if v <= 0 {
		return 0
	}
	if v > 255 {
		v = 255
	}
	return int(math.Round(math.Pow(255, float64(v)/255)))
}

// preview pushes the current frame to clients, paced by pixels and clients.
func (f *Fixture) preview(v *model.Variable) {
	clients := 0
	if f.push != nil {
		clients = f.push.ClientCount()
	}
	v.Interval = render.PreviewInterval(f.eng.Count(), clients)
	if clients == 0 {
		return
	}
	f.push.BroadcastBinary(render.PreviewFrame(f.eng.Dim(), v.Interval, f.eng.PreviewRGB()))
}

func (f *Fixture) describeFixtures(v *model.Variable) {
	f.m.Resp.Add(v.ID, "label", "Fixture")
	f.m.Resp.Add(v.ID, "comment", "Fixture to display effect on")
	options := []string{}
	if f.dir != nil {
		list, err := f.dir.List(fixtureMatch)
		if err != nil {
			f.m.Logger().Warn().Err(err).Msg("list fixtures")
		}
		for _, e := range list {
			options = append(options, e.Name)
		}
	}
	f.m.Resp.Add(v.ID, "options", options)
	if name, ok := f.fixtureName(v.Int(model.NoRow)); ok {
		f.m.Resp.Add("pview", "file", name)
	}
}

func (f *Fixture) fixtureName(i int) (string, bool) {
	if f.dir == nil {
		return "", false
	}
	return f.dir.NameForIndex(i, fixtureMatch)
}

// load resizes the engine to the fixture at index i of the selection.
func (f *Fixture) load(i int) {
	name, ok := f.fixtureName(i)
	if !ok {
		return
	}
	var def FixtureDef
	if err := f.dir.ReadDocument(name, &def); err != nil {
		f.m.Logger().Warn().Err(err).Str("file", name).Msg("read fixture")
		return
	}
	dim := def.Dimensions()
	if err := f.eng.SetDimensions(dim, f.maxLeds); err != nil {
		f.m.Logger().Warn().Err(err).Str("file", name).Msg("fixture size")
		return
	}
	f.eng.SetLayout(def.Wiring)
	f.m.Logger().Info().Str("file", name).Int("leds", f.eng.Count()).Msg("fixture loaded")
	f.m.SetValueByID("fixSize", ui.Coord3D{X: dim.X, Y: dim.Y, Z: dim.Z}.Value(), model.NoRow)
	f.m.SetValueByID("fixCount", f.eng.Count(), model.NoRow)
	f.m.Resp.Add("pview", "file", name)
}

func (f *Fixture) Loop1s(time.Time) {
	f.m.SetValueByID("realFps", fmtFps(f.eng.Frames()), model.NoRow)
}
