package e131

// Watch is one patched channel.
type Watch struct {
	Channel int // relative to the mapper's first channel
	ID      string
	Max     int
	Saved   int // last received value, -1 before the first packet
}

// Mapper turns DMX slots into variable values.
type Mapper struct {
	Universe     uint16
	FirstChannel int // 1 based
	watches      []Watch
}

func NewMapper(universe uint16, first int) *Mapper {
	return &Mapper{Universe: universe, FirstChannel: first}
}

// MapChannel watches channel (relative to FirstChannel) for id. Received
// values are reduced modulo max+1. Re-patching resets the saved value so the
// next packet applies even if unchanged.
func (m *Mapper) MapChannel(channel int, id string, max int) {
	for i := range m.watches {
		if m.watches[i].Channel == channel {
			m.watches[i] = Watch{Channel: channel, ID: id, Max: max, Saved: -1}
			return
		}
	}
	m.watches = append(m.watches, Watch{Channel: channel, ID: id, Max: max, Saved: -1})
}

// Watches returns the patched channels in patch order.
func (m *Mapper) Watches() []Watch { return m.watches }

// Absolute returns the DMX channel w listens on.
func (m *Mapper) Absolute(w Watch) int { return m.FirstChannel + w.Channel }

// Apply calls set for every watched channel whose value changed and
// returns how many did. Packets for other universes are ignored.
func (m *Mapper) Apply(p Packet, set func(id string, value int)) int {
	if p.Universe != m.Universe || p.StartCode != 0 {
		return 0
	}
	n := 0
	for i := range m.watches {
		w := &m.watches[i]
		idx := m.Absolute(*w) - 1
		if idx < 0 || idx >= len(p.Data) {
			continue
		}
		v := int(p.Data[idx])
		if v == w.Saved {
			continue
		}
		w.Saved = v
		n++
		if w.ID != "" && w.Max != 0 {
			set(w.ID, v%(w.Max+1))
		}
	}
	return n
}
