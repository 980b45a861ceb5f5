package led

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// NRZ drives WS2812 style strips through an SPI port.
type NRZ struct {
	mu     sync.Mutex
	dev    *nrzled.Dev
	closer io.Closer
	count  int
	order  string
	buf    []byte
}

// NewNRZ encodes frames for count pixels onto port at freq.
func NewNRZ(port spi.Port, count int, freq physic.Frequency, order string) (*NRZ, error) {
	if count <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", count)
	}
	if freq == 0 {
		freq = 2500 * physic.KiloHertz
	}
	d, err := nrzled.NewSPI(port, &nrzled.Opts{NumPixels: count, Channels: 3, Freq: freq})
	if err != nil {
		return nil, fmt.Errorf("nrzled: %w", err)
	}
	return &NRZ{dev: d, count: count, order: order, buf: make([]byte, 3*count)}, nil
}

// OpenSPI initializes the host drivers and opens the SPI port dev; an empty
// dev picks the first port.
func OpenSPI(dev string, count, speedHz int, order string) (*NRZ, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	p, err := spireg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", dev, err)
	}
	n, err := NewNRZ(p, count, physic.Frequency(speedHz)*physic.Hertz, order)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	n.closer = p
	return n, nil
}

// Open returns the driver named kind. A failing "spi" falls back to a Sim
// and returns the error so callers can report the degradation.
func Open(kind, dev string, count, speedHz int, order string) (Driver, error) {
	if kind != "spi" {
		return NewSim(count), nil
	}
	d, err := OpenSPI(dev, count, speedHz, order)
	if err != nil {
		log.Warn().Err(err).Msg("spi unavailable, using simulated leds")
		return NewSim(count), err
	}
	return d, nil
}

func (n *NRZ) Write(rgb []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dev == nil {
		return fmt.Errorf("nrz closed")
	}
	if len(rgb)%3 != 0 || len(rgb) > len(n.buf) {
		return fmt.Errorf("rgb length %d does not match count %d", len(rgb), n.count)
	}
	Reorder(n.buf, rgb, n.order)
	if _, err := n.dev.Write(n.buf[:len(rgb)]); err != nil {
		return fmt.Errorf("spi write: %w", err)
	}
	return nil
}

// Close blanks the strip and releases the port.
func (n *NRZ) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dev == nil {
		return nil
	}
	err := n.dev.Halt()
	n.dev = nil
	if n.closer != nil {
		if cerr := n.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (n *NRZ) String() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.dev == nil {
		return "nrzled{closed}"
	}
	return n.dev.String()
}
