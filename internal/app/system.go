package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coreman2200/ledfix/internal/files"
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/ui"
)

// System shows loop statistics and uptime and saves the model.
type System struct {
	base
	dir       *files.Dir
	modelPath string
	start     time.Time

	loopps []int // last per second counts, by vlTbl row
}

func NewSystem(m *model.Model, dir *files.Dir, modelPath string) *System {
	return &System{
		base:      newBase(m, ui.SystemID, orderSystem),
		dir:       dir,
		modelPath: modelPath,
		start:     time.Now(),
	}
}

func (s *System) Setup(c *ui.Controls) {
	s.setupModule(c, "")

	c.InitDisplay(s.parent, "uptime", varFun{ui: labeled(s.m, "Uptime", "s")}.fun())

	tbl := c.InitTable(s.parent, "vlTbl", true, varFun{ui: s.describeLoops}.fun())
	c.InitTextColumn(tbl, "vlVar", true, varFun{ui: labeled(s.m, "Name", "")}.fun())
	c.InitNumberColumn(tbl, "vlLoopps", 0, 999999, true, varFun{ui: labeled(s.m, "Loops p s", "")}.fun())

	c.InitButton(s.parent, "saveModel", "SaveModel", varFun{
		ui: labeled(s.m, "", "Write to model.json"),
		change: func(*model.Variable, uint8) {
			if err := s.Save(); err != nil {
				s.m.Logger().Error().Err(err).Msg("save model")
			}
		},
	}.fun())
}

// describeLoops writes one vlTbl row per loop variable.
func (s *System) describeLoops(v *model.Variable) {
	s.m.Resp.Add(v.ID, "label", "Variable loops")
	rows := s.m.Resp.AddRows(v.ID, "value")
	for i, id := range s.m.Sched.IDs() {
		n := 0
		if i < len(s.loopps) {
			n = s.loopps[i]
		}
		rows.Add(id, n)
	}
}

func (s *System) Loop1s(now time.Time) {
	s.m.SetValueByID("uptime", int(now.Sub(s.start)/time.Second), model.NoRow)

	stats := s.m.Sched.Flush1s()
	s.loopps = s.loopps[:0]
	for i, st := range stats {
		if i >= int(model.NoRow) {
			break
		}
		s.loopps = append(s.loopps, st.Count)
		s.m.SetValueByID("vlVar", st.ID, uint8(i))
		s.m.SetValueByID("vlLoopps", st.Count, uint8(i))
	}
}

// Save writes the model snapshot to the data directory.
func (s *System) Save() error {
	if s.dir == nil {
		return fmt.Errorf("save %s: %w", s.modelPath, files.ErrNotFound)
	}
	data, err := json.Marshal(s.m.Store)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	if err := s.dir.WriteDocument(s.modelPath, json.RawMessage(data)); err != nil {
		return err
	}
	s.m.Logger().Info().Str("path", s.modelPath).Int("vars", s.m.Store.Len()).Msg("model saved")
	return nil
}

// LoadModel reads a saved snapshot into the store. A missing file is not an
// error.
func LoadModel(m *model.Model, dir *files.Dir, path string) error {
	if dir == nil {
		return nil
	}
	var raw json.RawMessage
	if err := dir.ReadDocument(path, &raw); err != nil {
		if errors.Is(err, files.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := m.Store.Load(raw); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	m.Logger().Info().Str("path", path).Int("vars", m.Store.Len()).Msg("model loaded")
	return nil
}
