package app

import (
	"math"
	"strconv"
	"time"

	"github.com/coreman2200/ledfix/internal/files"
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/render"
	"github.com/coreman2200/ledfix/internal/ui"
)

// r35Name is the ring fixture written by createR35LedFix.
const (
	r35Name     = "lfR35.json"
	r35Leds     = 35
	r35Diameter = 100.0
)

// Leds selects the effect and renders it at the fixture frame rate.
type Leds struct {
	base
	eng   *render.Engine
	dir   *files.Dir
	onNew func() // called after a fixture file was written
}

func NewLeds(m *model.Model, eng *render.Engine, dir *files.Dir, onNew func()) *Leds {
	return &Leds{base: newBase(m, "Leds", orderLeds), eng: eng, dir: dir, onNew: onNew}
}

func (l *Leds) Setup(c *ui.Controls) {
	l.setupModule(c, "")

	c.InitSelect(l.parent, "fx", 0, false, varFun{
		ui: func(v *model.Variable) {
			l.m.Resp.Add(v.ID, "label", "Effect")
			l.m.Resp.Add(v.ID, "comment", "Effect to show")
			l.m.Resp.Add(v.ID, "options", l.eng.Reg.Names())
		},
		change: func(v *model.Variable, _ uint8) {
			i := v.Int(model.NoRow)
			if err := l.eng.SetActive(i); err != nil {
				l.m.Logger().Warn().Err(err).Int("fx", i).Msg("select effect")
				return
			}
			l.eng.Clear()
			if p := l.m.FindVar("fxParam"); p != nil {
				l.applyParam(p)
				l.m.Call(p, model.NoRow, model.UIFun)
			}
		},
	}.fun())

	c.InitNumber(l.parent, "fxParam", 0, 0, 255, false, varFun{
		ui: l.describeParam,
		change: func(v *model.Variable, _ uint8) {
			l.applyParam(v)
		},
	}.fun())

	c.InitButton(l.parent, "createR35LedFix", "LedFix", varFun{
		ui: labeled(l.m, "", "Write a 35 led ring fixture"),
		change: func(*model.Variable, uint8) {
			if err := l.CreateR35(); err != nil {
				l.m.Logger().Error().Err(err).Msg("create fixture")
			}
		},
	}.fun())

	c.InitNumber(l.parent, "dataPin", 16, 0, 40, false, varFun{
		ui: labeled(l.m, "Data pin", "Not implemented yet (fixed to 16)"),
	}.fun())
}

// activeParam names the first parameter of the selected effect, "" if none.
func (l *Leds) activeParam() string {
	fx, ok := l.eng.Reg.Get(l.eng.Active())
	if !ok || len(fx.Parameters()) == 0 {
		return ""
	}
	return fx.Parameters()[0]
}

func (l *Leds) describeParam(v *model.Variable) {
	name := l.activeParam()
	if name == "" {
		l.m.Resp.Add(v.ID, "label", "Parameter")
		l.m.Resp.Add(v.ID, "comment", "Not used by this effect")
		return
	}
	l.m.Resp.Add(v.ID, "label", name)
	l.m.Resp.Add(v.ID, "comment", "0 keeps the effect default")
}

// applyParam hands the control value to the selected effect.
func (l *Leds) applyParam(v *model.Variable) {
	if name := l.activeParam(); name != "" {
		l.eng.SetParam(name, float64(v.Int(model.NoRow)))
	}
}

// Loop renders a frame when one is due.
func (l *Leds) Loop(now time.Time) {
	if !l.eng.Due(now) {
		return
	}
	if err := l.eng.RenderOnce(now); err != nil {
		l.m.Logger().Warn().Err(err).Msg("render")
	}
}

// CreateR35 writes a ring of 35 leds, positions in mm.
func (l *Leds) CreateR35() error {
	if l.dir == nil {
		return files.ErrNotFound
	}
	def := FixtureDef{Name: "R35", Scale: "mm", Map: make([][]float64, r35Leds)}
	for i := range def.Map {
		rad := float64(i) * 2 * math.Pi / r35Leds
		def.Map[i] = []float64{
			math.Round((r35Diameter/2)*(1+math.Sin(rad))*10) / 10,
			math.Round((r35Diameter/2)*(1+math.Cos(rad))*10) / 10,
		}
	}
	if err := l.dir.WriteDocument(r35Name, def); err != nil {
		return err
	}
	l.m.Logger().Info().Str("file", r35Name).Msg("fixture written")
	if l.onNew != nil {
		l.onNew()
	}
	return nil
}

func fmtFps(n int) string { return strconv.Itoa(n) + " /s" }
