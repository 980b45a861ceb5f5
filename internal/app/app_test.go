package app

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/coreman2200/ledfix/internal/config"
	"github.com/coreman2200/ledfix/internal/diagnostics"
	"github.com/coreman2200/ledfix/internal/e131"
	"github.com/coreman2200/ledfix/internal/files"
	"github.com/coreman2200/ledfix/internal/led"
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/pins"
	"github.com/coreman2200/ledfix/internal/render"
	"github.com/coreman2200/ledfix/internal/ui"
	"github.com/coreman2200/ledfix/internal/ws"
)

type fakeHub struct {
	mu      sync.Mutex
	in      chan ws.Inbound
	clients int
	text    [][]byte
	binary  [][]byte
	direct  map[uint64][][]byte
	diags   []diagnostics.Diagnostic
}

func newFakeHub() *fakeHub {
	return &fakeHub{in: make(chan ws.Inbound, 8), direct: map[uint64][][]byte{}}
}

func (h *fakeHub) Inbound() <-chan ws.Inbound { return h.in }
func (h *fakeHub) ClientCount() int           { return h.clients }

func (h *fakeHub) SendJSON(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.text = append(h.text, append([]byte(nil), data...))
}

func (h *fakeHub) BroadcastBinary(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.binary = append(h.binary, data)
}

func (h *fakeHub) SendTo(id uint64, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.direct[id] = append(h.direct[id], data)
	return nil
}

func (h *fakeHub) PushDiag(d diagnostics.Diagnostic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.diags = append(h.diags, d)
}

type harness struct {
	cfg    *config.Config
	m      *model.Model
	rt     *Runtime
	hub    *fakeHub
	eng    *render.Engine
	dir    *files.Dir
	mapper *e131.Mapper
	pin2   *gpiotest.Pin
}

func newHarness(t *testing.T, dir *files.Dir) *harness {
	t.Helper()
	return newLoggedHarness(t, dir, zerolog.Nop())
}

func newLoggedHarness(t *testing.T, dir *files.Dir, l zerolog.Logger) *harness {
	t.Helper()
	h := &harness{cfg: config.Default(), hub: newFakeHub(), dir: dir}
	h.cfg.MaxLeds = 256

	h.m = model.New(model.Options{Logger: &l, Sender: h.hub})

	var err error
	h.eng, err = render.NewEngine(render.Defaults(), led.NewSim(h.cfg.MaxLeds), render.Dimensions{X: 8, Y: 8, Z: 1}, h.cfg.MaxLeds, nil)
	require.NoError(t, err)

	h.pin2 = &gpiotest.Pin{N: "GPIO2", Num: 2}
	mgr := pins.New()
	mgr.Attach("Pin2", h.pin2)

	h.mapper = e131.NewMapper(1, 1)
	h.rt = Bootstrap(h.cfg, h.m, Deps{
		Engine: h.eng,
		Dir:    dir,
		Pins:   mgr,
		Mapper: h.mapper,
		Hub:    h.hub,
	})
	return h
}

func openDir(t *testing.T) *files.Dir {
	t.Helper()
	d, err := files.Open(t.TempDir())
	require.NoError(t, err)
	return d
}

func (h *harness) command(t *testing.T, doc string) reply {
	t.Helper()
	ch := make(chan []byte, 1)
	h.rt.Handle(ws.Inbound{Client: 1, Data: []byte(doc), Reply: ch})
	var r reply
	require.NoError(t, json.Unmarshal(<-ch, &r))
	return r
}

// lastAttr returns attr of id from the newest document that carries it.
func (h *harness) lastAttr(t *testing.T, id, attr string) any {
	t.Helper()
	h.hub.mu.Lock()
	defer h.hub.mu.Unlock()
	for i := len(h.hub.text) - 1; i >= 0; i-- {
		var doc map[string]json.RawMessage
		var frag map[string]any
		if json.Unmarshal(h.hub.text[i], &doc) != nil || json.Unmarshal(doc[id], &frag) != nil {
			continue
		}
		if v, ok := frag[attr]; ok {
			return v
		}
	}
	return nil
}

func TestBootstrapDeclaresModules(t *testing.T) {
	h := newHarness(t, openDir(t))
	for _, id := range []string{
		"Fixture", "on", "bri", "pview", "fixture", "fixSize", "fixCount", "fps", "realFps",
		"Leds", "fx", "fxParam", "createR35LedFix", "dataPin",
		"E131", "dmxUni", "dmxChannel", "e131Tbl", "e131Channel", "e131Name", "e131Max", "e131Value",
		"Pins", "Pin2",
		"Files", "fileTbl", "flName", "flSize", "drsize",
		ui.SystemID, "uptime", "vlTbl", "vlVar", "vlLoopps", "saveModel",
	} {
		v := h.m.FindVar(id)
		require.NotNil(t, v, id)
		assert.True(t, v.Seen(), id)
	}
	assert.Equal(t, -orderFixture, h.m.FindVar("Fixture").Order)
	assert.Equal(t, -orderSystem, h.m.FindVar(ui.SystemID).Order)
	assert.Empty(t, h.hub.diags)
}

func TestSetupIsIdempotent(t *testing.T) {
	h := newHarness(t, openDir(t))
	vars, funs, loops := h.m.Store.Len(), h.m.FunCount(), h.m.Sched.Len()

	h.rt.Ctl.InitNumber(nil, "leftover", 1, 0, 9, false, nil)
	removed := h.rt.Setup()

	assert.Equal(t, []string{"leftover"}, removed)
	assert.Equal(t, vars, h.m.Store.Len())
	assert.Equal(t, funs, h.m.FunCount())
	assert.Equal(t, loops, h.m.Sched.Len())
}

func TestBrightnessAndPower(t *testing.T) {
	h := newHarness(t, openDir(t))

	r := h.command(t, `{"bri":255}`)
	assert.Empty(t, r.Diagnostics)
	assert.Equal(t, 1.0, h.eng.U.GlobalBrightness)

	h.command(t, `{"on":false}`)
	assert.Equal(t, 0.0, h.eng.U.GlobalBrightness)

	h.command(t, `{"on":{"value":true}}`)
	assert.Equal(t, 1.0, h.eng.U.GlobalBrightness)

	assert.Equal(t, 10000.0, h.eng.U.Params["Budget_mA"])
	assert.Equal(t, 20.0, h.eng.U.Params["LEDChan_mA"])
}

func TestCommandReplyCarriesDiagnostics(t *testing.T) {
	h := newHarness(t, openDir(t))
	r := h.command(t, `{"nonexistent":5,"addRow":{"id":"fileTbl","rowNr":0}}`)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, diagnostics.LookupMiss, r.Diagnostics[0].Code)
	assert.Equal(t, 0, r.Flushes, "fileTbl has no addRow")

	r = h.command(t, `[1]`)
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, diagnostics.Malformed, r.Diagnostics[0].Code)
	assert.Len(t, h.hub.diags, 2)
}

func TestConnectSendsModel(t *testing.T) {
	h := newHarness(t, openDir(t))
	h.rt.Handle(ws.Inbound{Client: 7, Connect: true})
	require.Len(t, h.hub.direct[7], 1)

	var doc struct {
		Model []map[string]any `json:"model"`
	}
	require.NoError(t, json.Unmarshal(h.hub.direct[7][0], &doc))
	ids := map[string]bool{}
	for _, root := range doc.Model {
		ids[root["id"].(string)] = true
	}
	assert.True(t, ids["Fixture"])
	assert.True(t, ids[ui.SystemID])
}

func TestEffectSelect(t *testing.T) {
	h := newHarness(t, openDir(t))
	h.command(t, `{"fx":2}`)
	assert.Equal(t, 2, h.eng.Active())

	h.command(t, `{"fx":99}`)
	assert.Equal(t, 2, h.eng.Active())
}

func TestEffectParamFollowsEffect(t *testing.T) {
	h := newHarness(t, openDir(t))
	h.m.Resp.Flush()
	assert.Equal(t, "Parameter", h.lastAttr(t, "fxParam", "label"))

	h.command(t, `{"fx":5}`)
	assert.Equal(t, "BeatsPerMinute", h.lastAttr(t, "fxParam", "label"))

	r := h.command(t, `{"fxParam":120}`)
	assert.Empty(t, r.Diagnostics)
	assert.Equal(t, 120, h.m.FindVar("fxParam").Int(model.NoRow))

	h.command(t, `{"fx":0}`)
	assert.Equal(t, "Parameter", h.lastAttr(t, "fxParam", "label"))
}

func TestSetupLeavesButtonsIdle(t *testing.T) {
	h := newHarness(t, openDir(t))
	list, err := h.dir.List("")
	require.NoError(t, err)
	assert.Empty(t, list)

	h.rt.Setup()
	h.rt.Setup()
	list, err = h.dir.List("")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, "LedFix", h.m.FindVar("createR35LedFix").Value(model.NoRow))
	assert.Equal(t, "SaveModel", h.m.FindVar("saveModel").Value(model.NoRow))
}

func TestE131PacketDrivesVariables(t *testing.T) {
	h := newHarness(t, openDir(t))
	data := make([]byte, 8)
	data[0] = 200
	data[1] = 11 // 11 % 9 effects

	h.rt.HandlePacket(e131.Packet{Universe: 1, Data: data})
	assert.Equal(t, 200, h.m.FindVar("bri").Int(model.NoRow))
	assert.Equal(t, 2, h.eng.Active())

	h.rt.HandlePacket(e131.Packet{Universe: 2, Data: []byte{1, 1}})
	assert.Equal(t, 200, h.m.FindVar("bri").Int(model.NoRow))

	h.command(t, `{"dmxChannel":5}`)
	assert.Equal(t, 5, h.mapper.FirstChannel)
	assert.Equal(t, int64(2), h.rt.Status()["packets"])
}

func TestE131TableFollowsChannel(t *testing.T) {
	h := newHarness(t, openDir(t))
	h.hub.text = nil
	h.command(t, `{"dmxChannel":10}`)

	var found []any
	for _, b := range h.hub.text {
		var doc map[string]map[string]any
		require.NoError(t, json.Unmarshal(b, &doc))
		if frag, ok := doc["e131Tbl"]; ok {
			found, _ = frag["value"].([]any)
		}
	}
	require.Len(t, found, 2)
	assert.Equal(t, []any{10.0, "bri", 255.0, -1.0}, found[0])
}

func TestPassRendersAndPreviews(t *testing.T) {
	h := newHarness(t, openDir(t))
	h.hub.clients = 1
	now := time.Now()
	h.rt.Pass(now)

	require.NotEmpty(t, h.hub.binary)
	frame := h.hub.binary[len(h.hub.binary)-1]
	assert.Equal(t, byte(render.PreviewKind), frame[0])
	assert.Equal(t, []byte{8, 8, 1}, frame[1:4])
	assert.Len(t, frame, 5+3*64)
	assert.Equal(t, render.PreviewInterval(64, 1), h.m.FindVar("pview").Interval)
}

func TestLoop1sFillsLoopTable(t *testing.T) {
	h := newHarness(t, openDir(t))
	t0 := time.Now()
	h.rt.Pass(t0)
	h.rt.Pass(t0.Add(1100 * time.Millisecond))

	assert.Equal(t, "pview", h.m.FindVar("vlVar").Value(0))
	assert.GreaterOrEqual(t, h.m.FindVar("vlLoopps").Int(0), 1)
	assert.Equal(t, "2 /s", h.m.FindVar("realFps").String(model.NoRow))
	assert.Equal(t, 1, h.m.FindVar("uptime").Int(model.NoRow))
}

func TestFixtureSelectResizes(t *testing.T) {
	dir := openDir(t)
	require.NoError(t, dir.WriteDocument("F_2D.json", FixtureDef{
		Name:   "panel",
		Size:   &ui.Coord3D{X: 4, Y: 4, Z: 1},
		Wiring: render.Serpentine{XFlipEveryRow: true},
	}))
	var logs bytes.Buffer
	h := newLoggedHarness(t, dir, zerolog.New(&logs).Level(zerolog.WarnLevel))
	assert.Empty(t, logs.String())

	assert.Equal(t, 16, h.eng.Count())
	assert.Equal(t, 16, h.m.FindVar("fixCount").Int(model.NoRow))
	assert.Equal(t, map[string]any{"x": 4, "y": 4, "z": 1}, h.m.FindVar("fixSize").Value(model.NoRow))
}

func TestCreateR35(t *testing.T) {
	h := newHarness(t, openDir(t))
	h.command(t, `{"createR35LedFix":true}`)

	var def FixtureDef
	require.NoError(t, h.dir.ReadDocument(r35Name, &def))
	assert.Equal(t, "R35", def.Name)
	require.Len(t, def.Map, r35Leds)
	assert.Equal(t, []float64{50, 100}, def.Map[0])
	assert.Equal(t, render.Dimensions{X: 35, Y: 1, Z: 1}, def.Dimensions())
	assert.Equal(t, "LedFix", h.m.FindVar("createR35LedFix").Value(model.NoRow))
}

func TestSaveAndReloadModel(t *testing.T) {
	dir := openDir(t)
	h := newHarness(t, dir)
	h.command(t, `{"bri":77,"saveModel":true}`)

	again := newHarness(t, dir)
	assert.Equal(t, 77, again.m.FindVar("bri").Int(model.NoRow))
	assert.Equal(t, float64(LogBrightness(77))/255, again.eng.U.GlobalBrightness)
	assert.True(t, again.m.FindVar("bri").Seen())
}

func TestPinCheckbox(t *testing.T) {
	h := newHarness(t, openDir(t))
	h.command(t, `{"Pin2":true}`)
	assert.Equal(t, gpio.High, h.pin2.L)
	h.command(t, `{"Pin2":false}`)
	assert.Equal(t, gpio.Low, h.pin2.L)
}

func TestDegradedModules(t *testing.T) {
	h := newHarness(t, nil)
	require.Len(t, h.hub.diags, 1)
	assert.Equal(t, diagnostics.Degraded, h.hub.diags[0].Code)
	assert.Equal(t, "Files", h.hub.diags[0].Evidence["module"])

	h.command(t, `{"saveModel":true}`)
	assert.NotNil(t, h.m.FindVar("fileTbl"))
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, openDir(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.rt.Run(ctx) }()

	reply := make(chan []byte, 1)
	h.hub.in <- ws.Inbound{Client: 1, Data: []byte(`{"fps":30}`), Reply: reply}
	select {
	case <-reply:
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
	assert.Equal(t, 30, h.m.FindVar("fps").Int(model.NoRow))
}

func TestLogBrightness(t *testing.T) {
	assert.Equal(t, 0, LogBrightness(0))
	assert.Equal(t, 1, LogBrightness(1))
	assert.Equal(t, 16, LogBrightness(128))
	assert.Equal(t, 255, LogBrightness(255))
	assert.Equal(t, 255, LogBrightness(300))
}
