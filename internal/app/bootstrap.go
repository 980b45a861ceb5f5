package app

import (
	"time"

	"github.com/coreman2200/ledfix/internal/config"
	"github.com/coreman2200/ledfix/internal/e131"
	"github.com/coreman2200/ledfix/internal/files"
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/pins"
	"github.com/coreman2200/ledfix/internal/render"
)

// Deps are the collaborators opened by main. A non-nil error next to one
// marks its module degraded; the collaborator itself may still be usable.
type Deps struct {
	Engine  *render.Engine
	Dir     *files.Dir
	Pins    *pins.Manager
	PinsErr error
	Mapper  *e131.Mapper
	E131Err error
	Hub     Transport
	Packets <-chan e131.Packet
}

// ApplyPower sets the limiter parameters from the power settings.
func ApplyPower(eng *render.Engine, p config.PowerCfg) {
	if eng.U.Params == nil {
		eng.U.Params = map[string]float64{}
	}
	for k, v := range map[string]float64{
		"Budget_mA":   p.LimitAmps * 1000,
		"LEDChan_mA":  p.MaPerLed / 3,
		"WhiteCap":    p.WhiteCap * 3,
		"LimiterKnee": 0.9,
	} {
		eng.U.Params[k] = v
	}
}

// Bootstrap builds every module on m, loads the saved model and runs the
// first setup pass.
func Bootstrap(cfg *config.Config, m *model.Model, d Deps) *Runtime {
	// 1) Runtime and processor
	rt := NewRuntime(Options{
		Model:   m,
		Hub:     d.Hub,
		Packets: d.Packets,
		Every:   time.Duration(cfg.LoopMs) * time.Millisecond,
	})

	// 2) Output stage
	ApplyPower(d.Engine, cfg.Power)

	// 3) Modules, in UI order
	fixture := NewFixture(m, d.Engine, d.Dir, d.Hub, cfg.MaxLeds)
	filesMod := NewFiles(m, d.Dir, rt.Proc)
	leds := NewLeds(m, d.Engine, d.Dir, func() {
		rt.Proc.ProcessUiFun("fixture")
		filesMod.Refresh()
	})
	rt.Add(fixture, leds)
	if d.Mapper != nil {
		rt.Add(NewE131(m, d.Mapper, rt.Proc, d.Engine.Reg.Len(), d.E131Err))
	}
	if d.Pins != nil {
		rt.Add(NewPins(m, d.Pins, d.PinsErr))
	}
	rt.Add(filesMod, NewSystem(m, d.Dir, cfg.Model.Path))

	// 4) Saved values, then the declaration pass
	if err := LoadModel(m, d.Dir, cfg.Model.Path); err != nil {
		m.Logger().Warn().Err(err).Msg("saved model ignored")
	}
	rt.Setup()
	return rt
}
