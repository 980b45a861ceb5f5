package app

import (
	"time"

	"github.com/coreman2200/ledfix/internal/files"
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/ui"
)

// Redescriber rebuilds the UI of one variable and sends it right away.
type Redescriber interface {
	ProcessUiFun(id string)
}

// Files lists the data directory. A nil dir means it could not be opened.
type Files struct {
	base
	dir  *files.Dir
	ui   Redescriber
	used int64
}

func NewFiles(m *model.Model, dir *files.Dir, r Redescriber) *Files {
	f := &Files{base: newBase(m, "Files", orderFiles), dir: dir, ui: r, used: -1}
	f.success = dir != nil
	return f
}

func (f *Files) Setup(c *ui.Controls) {
	f.setupModule(c, "")

	tbl := c.InitTable(f.parent, "fileTbl", false, varFun{
		ui:  f.describeFiles,
		del: f.removeRow,
	}.fun())
	c.InitTextColumn(tbl, "flName", true, varFun{ui: labeled(f.m, "Name", "")}.fun())
	c.InitNumberColumn(tbl, "flSize", 0, 1<<30, true, varFun{ui: labeled(f.m, "Size (B)", "")}.fun())

	c.InitDisplay(f.parent, "drsize", varFun{ui: labeled(f.m, "Used", "B")}.fun())
}

func (f *Files) describeFiles(v *model.Variable) {
	f.m.Resp.Add(v.ID, "label", "Files")
	rows := f.m.Resp.AddRows(v.ID, "value")
	if f.dir == nil {
		return
	}
	list, err := f.dir.List("")
	if err != nil {
		f.m.Logger().Warn().Err(err).Msg("list files")
		return
	}
	for _, e := range list {
		rows.Add(e.Name, e.Size)
	}
}

// removeRow is reached through delRow on the table.
func (f *Files) removeRow(_ *model.Variable, row uint8) {
	if f.dir == nil || row == model.NoRow {
		return
	}
	name, ok := f.dir.NameForIndex(int(row), "")
	if !ok {
		return
	}
	if err := f.dir.Remove(name); err != nil {
		f.m.Logger().Warn().Err(err).Str("file", name).Msg("remove file")
		return
	}
	f.m.Logger().Info().Str("file", name).Msg("file removed")
	f.Refresh()
}

// Loop1s redescribes the table when the directory size changed.
func (f *Files) Loop1s(time.Time) {
	if f.dir == nil {
		return
	}
	if used := f.dir.UsedBytes(); used != f.used {
		f.used = used
		f.m.SetValueByID("drsize", used, model.NoRow)
		f.Refresh()
	}
}

// Refresh sends the file table again.
func (f *Files) Refresh() {
	if f.ui != nil {
		f.ui.ProcessUiFun("fileTbl")
	}
}
