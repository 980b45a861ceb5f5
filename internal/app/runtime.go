package app

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/coreman2200/ledfix/internal/diagnostics"
	"github.com/coreman2200/ledfix/internal/e131"
	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/ui"
	"github.com/coreman2200/ledfix/internal/ws"
)

// Transport is what the main loop needs from the client hub.
type Transport interface {
	Pusher
	Inbound() <-chan ws.Inbound
	SendTo(id uint64, data []byte) error
	PushDiag(d diagnostics.Diagnostic)
}

// Runtime is the single writer of the model. Every module, the processor
// and the response builder run on the goroutine that calls Run.
type Runtime struct {
	M       *model.Model
	Proc    *ui.Processor
	Ctl     *ui.Controls
	Modules []Module

	hub     Transport
	packets <-chan e131.Packet
	e131    *E131
	every   time.Duration
	log     zerolog.Logger

	last1s time.Time
	passes atomic.Int64
	cmds   atomic.Int64
	pkts   atomic.Int64
}

// Options wires a Runtime. Hub and Packets may be nil.
type Options struct {
	Model   *model.Model
	Hub     Transport
	Packets <-chan e131.Packet
	Every   time.Duration
	Logger  *zerolog.Logger
}

// NewRuntime builds the processor on m; its diagnostics go to the hub.
func NewRuntime(opts Options) *Runtime {
	r := &Runtime{
		M:       opts.Model,
		Ctl:     ui.NewControls(opts.Model),
		hub:     opts.Hub,
		packets: opts.Packets,
		every:   opts.Every,
		log:     *opts.Model.Logger(),
	}
	if opts.Logger != nil {
		r.log = *opts.Logger
	}
	if r.every <= 0 {
		r.every = time.Millisecond
	}
	r.Proc = ui.NewProcessor(r.M, r.emit)
	return r
}

// Add appends modules in setup order.
func (r *Runtime) Add(mods ...Module) {
	for _, m := range mods {
		if e, ok := m.(*E131); ok {
			r.e131 = e
		}
		r.Modules = append(r.Modules, m)
	}
}

func (r *Runtime) emit(d diagnostics.Diagnostic) {
	if r.hub != nil {
		r.hub.PushDiag(d)
	}
}

// Setup runs one declaration pass over every module and removes variables
// that were not declared again. It is safe to call repeatedly.
func (r *Runtime) Setup() []string {
	r.M.Store.BeginPass()
	for _, m := range r.Modules {
		m.Setup(r.Ctl)
	}
	removed := r.M.Store.Sweep()
	if len(removed) > 0 {
		r.log.Info().Strs("ids", removed).Msg("removed stale variables")
	}
	for _, m := range r.Modules {
		if m.Success() {
			continue
		}
		r.log.Warn().Str("module", m.Name()).Msg("module degraded")
		r.emit(diagnostics.Diagnostic{
			Severity: diagnostics.Warn,
			Code:     diagnostics.Degraded,
			Summary:  m.Name() + " is not fully available",
			Evidence: map[string]any{"module": m.Name()},
		})
	}
	r.log.Info().
		Int("vars", r.M.Store.Len()).
		Int("funs", r.M.FunCount()).
		Int("loops", r.M.Sched.Len()).
		Msg("setup done")
	return removed
}

// Run drives the main loop until ctx is done.
func (r *Runtime) Run(ctx context.Context) error {
	t := time.NewTicker(r.every)
	defer t.Stop()

	var inbound <-chan ws.Inbound
	if r.hub != nil {
		inbound = r.hub.Inbound()
	}
	for {
		select {
		case <-ctx.Done():
			r.M.Resp.Flush()
			return ctx.Err()
		case in := <-inbound:
			r.Handle(in)
		case p, ok := <-r.packets:
			if !ok {
				r.packets = nil
				continue
			}
			r.HandlePacket(p)
		case now := <-t.C:
			r.Pass(now)
		}
	}
}

// Pass runs module loops and due variable loops, once a second the Loop1s
// functions, and then sends what they produced.
func (r *Runtime) Pass(now time.Time) {
	r.passes.Add(1)
	for _, m := range r.Modules {
		m.Loop(now)
	}
	r.M.Sched.Tick(now)
	if r.last1s.IsZero() {
		r.last1s = now
	}
	if now.Sub(r.last1s) >= time.Second {
		r.last1s = now
		for _, m := range r.Modules {
			m.Loop1s(now)
		}
	}
	r.M.Resp.Flush()
}

// Handle processes one transport message.
func (r *Runtime) Handle(in ws.Inbound) {
	if in.Connect {
		r.sendModel(in.Client)
		return
	}
	r.cmds.Add(1)
	res, err := r.Proc.ProcessJSON(in.Data)
	if err != nil {
		r.log.Warn().Err(err).Uint64("client", in.Client).Msg("bad command batch")
		d := diagnostics.Diagnostic{
			Severity: diagnostics.Warn,
			Code:     diagnostics.Malformed,
			Summary:  "command batch is not a JSON object",
			Detail:   err.Error(),
		}
		res.Diagnostics = append(res.Diagnostics, d)
		r.emit(d)
	}
	r.M.Resp.Flush()
	if in.Reply != nil {
		b, _ := json.Marshal(reply{Diagnostics: res.Diagnostics, Flushes: res.Flushes})
		select {
		case in.Reply <- b:
		default:
		}
	}
}

type reply struct {
	Diagnostics []diagnostics.Diagnostic `json:"diagnostics"`
	Flushes     int                      `json:"flushes"`
}

// sendModel gives a new client the whole model before any update.
func (r *Runtime) sendModel(client uint64) {
	r.M.Resp.Flush()
	b, err := json.Marshal(map[string]any{"model": r.M.Store})
	if err != nil {
		r.log.Error().Err(err).Msg("marshal model")
		return
	}
	if err := r.hub.SendTo(client, b); err != nil {
		r.log.Debug().Err(err).Uint64("client", client).Msg("send model")
	}
}

// HandlePacket hands a received E1.31 packet to the E131 module.
func (r *Runtime) HandlePacket(p e131.Packet) {
	r.pkts.Add(1)
	if r.e131 == nil {
		return
	}
	if r.e131.HandlePacket(p) > 0 {
		r.M.Resp.Flush()
	}
}

// Status is safe to call from any goroutine.
func (r *Runtime) Status() map[string]any {
	return map[string]any{
		"passes":   r.passes.Load(),
		"commands": r.cmds.Load(),
		"packets":  r.pkts.Load(),
	}
}
