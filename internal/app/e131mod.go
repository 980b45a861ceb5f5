package app

import (
	"github.com/coreman2200/ledfix/internal/e131"
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/ui"
)

// E131 patches DMX channels onto variables. A nil receiver error means the
// UDP port is bound.
type E131 struct {
	base
	mapper *e131.Mapper
	ui     Redescriber
}

func NewE131(m *model.Model, mapper *e131.Mapper, r Redescriber, fxCount int, listenErr error) *E131 {
	e := &E131{base: newBase(m, "E131", orderE131), mapper: mapper, ui: r}
	e.success = listenErr == nil
	// default patch, relative to dmxChannel
	mapper.MapChannel(0, "bri", 255)
	if fxCount > 1 {
		mapper.MapChannel(1, "fx", fxCount-1)
	}
	return e
}

func (e *E131) Setup(c *ui.Controls) {
	e.setupModule(c, "Receive DMX over E1.31")

	c.InitNumber(e.parent, "dmxUni", int(e.mapper.Universe), 0, 7, false, varFun{
		ui: labeled(e.m, "Universe", ""),
		change: func(v *model.Variable, _ uint8) {
			e.mapper.Universe = uint16(v.Int(model.NoRow))
			e.m.Logger().Info().Uint16("universe", e.mapper.Universe).Msg("e131 universe")
		},
	}.fun())

	c.InitNumber(e.parent, "dmxChannel", e.mapper.FirstChannel, 1, 512, false, varFun{
		ui: labeled(e.m, "Channel", "First channel"),
		change: func(v *model.Variable, _ uint8) {
			e.mapper.FirstChannel = v.Int(model.NoRow)
			if e.ui != nil && e.m.FindVar("e131Tbl") != nil {
				e.ui.ProcessUiFun("e131Tbl")
			}
		},
	}.fun())

	tbl := c.InitTable(e.parent, "e131Tbl", true, varFun{ui: e.describeWatches}.fun())
	c.InitNumberColumn(tbl, "e131Channel", 1, 512, true, varFun{ui: labeled(e.m, "Channel", "")}.fun())
	c.InitTextColumn(tbl, "e131Name", true, varFun{ui: labeled(e.m, "Name", "")}.fun())
	c.InitNumberColumn(tbl, "e131Max", 0, 255, true, varFun{ui: labeled(e.m, "Max", "")}.fun())
	c.InitNumberColumn(tbl, "e131Value", 0, 255, true, varFun{ui: labeled(e.m, "Value", "")}.fun())
}

func (e *E131) describeWatches(v *model.Variable) {
	e.m.Resp.Add(v.ID, "label", "Watches")
	rows := e.m.Resp.AddRows(v.ID, "value")
	for _, w := range e.mapper.Watches() {
		rows.Add(e.mapper.Absolute(w), w.ID, w.Max, w.Saved)
	}
}

// HandlePacket applies one received packet to the patched variables.
func (e *E131) HandlePacket(p e131.Packet) int {
	return e.mapper.Apply(p, func(id string, value int) {
		e.m.Logger().Debug().Str("id", id).Int("value", value).Msg("e131 set")
		e.m.SetValueByID(id, value, model.NoRow)
	})
}
