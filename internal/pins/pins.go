// Package pins toggles GPIO outputs by name.
package pins

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var ErrUnknownPin = errors.New("unknown pin")

// Manager maps names to output pins and remembers their last level.
type Manager struct {
	mu    sync.Mutex
	pins  map[string]gpio.PinOut
	state map[string]bool
}

func New() *Manager {
	return &Manager{pins: map[string]gpio.PinOut{}, state: map[string]bool{}}
}

// Open initializes the host drivers and resolves every gpio number in
// numbers. Pins that cannot be found are left out and reported in the
// returned error; the manager is usable either way.
func Open(numbers map[string]int) (*Manager, error) {
	m := New()
	if _, err := host.Init(); err != nil {
		return m, fmt.Errorf("host init: %w", err)
	}
	var errs []error
	for name, num := range numbers {
		p := Lookup(num)
		if p == nil {
			errs = append(errs, fmt.Errorf("gpio %d for %s: %w", num, name, ErrUnknownPin))
			continue
		}
		m.Attach(name, p)
	}
	return m, errors.Join(errs...)
}

// Lookup finds a gpio by number, then by its GPIO<n> name.
func Lookup(num int) gpio.PinIO {
	if p := gpioreg.ByName(strconv.Itoa(num)); p != nil {
		return p
	}
	return gpioreg.ByName("GPIO" + strconv.Itoa(num))
}

// Attach registers p under name.
func (m *Manager) Attach(name string, p gpio.PinOut) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins[name] = p
}

// Set drives name high when on.
func (m *Manager) Set(name string, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pins[name]
	if !ok {
		return fmt.Errorf("set %s: %w", name, ErrUnknownPin)
	}
	l := gpio.Low
	if on {
		l = gpio.High
	}
	if err := p.Out(l); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	m.state[name] = on
	return nil
}

// State returns the last level set on name.
func (m *Manager) State(name string) (on, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	on, ok = m.state[name]
	return
}

// Names lists the attached pins, sorted.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.pins))
	for n := range m.pins {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Halt drives every pin low.
func (m *Manager) Halt() error {
	var errs []error
	for _, n := range m.Names() {
		if err := m.Set(n, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
