package app

import (
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/pins"
	"github.com/coreman2200/ledfix/internal/ui"
)

// Pins shows one checkbox per configured output pin.
type Pins struct {
	base
	mgr *pins.Manager
}

// NewPins takes the manager even when opening some pins failed; openErr marks
// the module degraded.
func NewPins(m *model.Model, mgr *pins.Manager, openErr error) *Pins {
	p := &Pins{base: newBase(m, "Pins", orderPins), mgr: mgr}
	p.success = openErr == nil
	return p
}

func (p *Pins) Setup(c *ui.Controls) {
	p.setupModule(c, "")
	for _, name := range p.mgr.Names() {
		on, _ := p.mgr.State(name)
		c.InitCheckBox(p.parent, name, on, false, varFun{
			ui: labeled(p.m, name, ""),
			change: func(v *model.Variable, _ uint8) {
				if err := p.mgr.Set(v.ID, v.Bool(model.NoRow)); err != nil {
					p.m.Logger().Warn().Err(err).Str("pin", v.ID).Msg("set pin")
				}
			},
		}.fun())
	}
}
