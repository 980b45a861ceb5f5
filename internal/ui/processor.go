package ui

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/coreman2200/ledfix/internal/diagnostics"
	"github.com/coreman2200/ledfix/internal/model"
)

// ErrNotObject is returned when a command batch is not a JSON object.
var ErrNotObject = errors.New("command batch is not a JSON object")

// Pair is one key of a command batch, in document order.
type Pair struct {
	Key   string
	Value any
}

// Result reports what a batch produced.
type Result struct {
	Diagnostics []diagnostics.Diagnostic
	Flushes     int
}

// Processor applies client command batches to the model.
type Processor struct {
	m    *model.Model
	sink diagnostics.Sink
}

func NewProcessor(m *model.Model, sink diagnostics.Sink) *Processor {
	return &Processor{m: m, sink: sink}
}

// ParsePairs decodes the top level of a JSON object keeping key order.
func ParsePairs(data []byte) ([]Pair, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}
	var pairs []Pair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode command key: %w", err)
		}
		key, _ := tok.(string)
		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("decode command %q: %w", key, err)
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}
	return pairs, nil
}

// ProcessJSON parses and applies one batch.
func (p *Processor) ProcessJSON(data []byte) (Result, error) {
	pairs, err := ParsePairs(data)
	if err != nil {
		return Result{}, err
	}
	return p.Process(pairs), nil
}

// Process applies the pairs in order. Pairs are a snapshot, so fragments
// written by callbacks are never processed as commands.
func (p *Processor) Process(pairs []Pair) Result {
	var res Result
	for _, pair := range pairs {
		switch pair.Key {
		case "view", "canvasData", "theme":
			p.storeView(&res, pair)
		case "addRow", "delRow":
			p.rowCommand(&res, pair)
		case "uiFun":
			p.uiFun(&res, pair)
		default:
			p.assign(&res, pair)
		}
	}
	return res
}

// ProcessUiFun sends what is pending, describes id again and sends that too.
func (p *Processor) ProcessUiFun(id string) {
	p.m.Resp.Flush()
	v := p.m.FindVar(id)
	if v == nil {
		p.report(&Result{}, diagnostics.LookupMiss, "variable not found", map[string]any{"command": "uiFun", "id": id})
		return
	}
	p.m.Call(v, model.NoRow, model.UIFun)
	p.m.Resp.Flush()
}

func (p *Processor) storeView(res *Result, pair Pair) {
	sys := p.m.FindVar(SystemID)
	if sys == nil {
		p.report(res, diagnostics.LookupMiss, "variable not found", map[string]any{"command": pair.Key, "id": SystemID})
	} else {
		sys.SetAttr(pair.Key, pair.Value)
	}
	// clients replay these keys
	p.m.Resp.Echo(pair.Key, pair.Value)
}

func (p *Processor) rowCommand(res *Result, pair Pair) {
	cmd, ok := pair.Value.(map[string]any)
	id, _ := cmd["id"].(string)
	row, rowOK := rowNumber(cmd["rowNr"])
	if !ok || id == "" || !rowOK {
		p.report(res, diagnostics.Malformed, "row command needs id and rowNr", map[string]any{"command": pair.Key, "value": pair.Value})
		return
	}
	v := p.m.FindVar(id)
	if v == nil {
		p.report(res, diagnostics.LookupMiss, "variable not found", map[string]any{"command": pair.Key, "id": id})
		return
	}
	kind := model.AddRow
	if pair.Key == "delRow" {
		kind = model.DelRow
	}
	p.m.Logger().Debug().Str("command", pair.Key).Str("id", id).Uint8("row", row).Msg("process")
	if p.m.Call(v, row, kind) {
		p.m.Resp.Flush()
		res.Flushes++
	}
}

func (p *Processor) uiFun(res *Result, pair Pair) {
	ids, ok := pair.Value.([]any)
	if !ok {
		p.report(res, diagnostics.Malformed, "uiFun needs a list of ids", map[string]any{"value": pair.Value})
		return
	}
	for _, raw := range ids {
		id, _ := raw.(string)
		v := p.m.FindVar(id)
		if v == nil {
			p.report(res, diagnostics.LookupMiss, "variable not found", map[string]any{"command": "uiFun", "id": raw})
			continue
		}
		p.m.Call(v, model.NoRow, model.UIFun)
	}
}

func (p *Processor) assign(res *Result, pair Pair) {
	if pair.Value == nil {
		p.report(res, diagnostics.Unrecognized, "command not recognized", map[string]any{"command": pair.Key})
		return
	}
	newValue := pair.Value
	if obj, ok := pair.Value.(map[string]any); ok {
		val, has := obj["value"]
		if !has || val == nil {
			p.report(res, diagnostics.Unrecognized, "object without value", map[string]any{"command": pair.Key, "value": pair.Value})
			return
		}
		newValue = val
	}

	id, rowNr, err := SplitRow(pair.Key)
	if err != nil {
		p.report(res, diagnostics.Malformed, err.Error(), map[string]any{"command": pair.Key})
		return
	}
	v := p.m.FindVar(id)
	if v == nil {
		p.report(res, diagnostics.LookupMiss, "variable not found", map[string]any{"id": id, "row": rowNr})
		return
	}
	p.m.Logger().Debug().Str("id", id).Uint8("row", rowNr).Interface("value", newValue).Msg("process")

	if v.Type == model.TypeButton {
		p.m.Call(v, rowNr, model.ChangeFun)
		return
	}
	p.m.Assign(v, newValue, rowNr)
}

// SplitRow separates "id#row" into its parts. Without a '#' the row is NoRow.
func SplitRow(key string) (string, uint8, error) {
	id, rowStr, found := strings.Cut(key, "#")
	if !found {
		return key, model.NoRow, nil
	}
	n, err := strconv.ParseUint(rowStr, 10, 8)
	if err != nil || uint8(n) == model.NoRow {
		return id, model.NoRow, fmt.Errorf("bad row selector in %q", key)
	}
	return id, uint8(n), nil
}

func rowNumber(raw any) (uint8, bool) {
	f, ok := raw.(float64)
	if !ok || f < 0 || f >= float64(model.NoRow) || f != float64(int(f)) {
		return 0, false
	}
	return uint8(f), true
}

func (p *Processor) report(res *Result, code, summary string, evidence map[string]any) {
	d := diagnostics.Diagnostic{Severity: diagnostics.Warn, Code: code, Summary: summary, Evidence: evidence}
	p.m.Logger().Warn().Str("code", code).Fields(evidence).Msg(summary)
	res.Diagnostics = append(res.Diagnostics, d)
	p.sink.Emit(d)
}
