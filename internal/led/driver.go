package led

import (
	"fmt"
	"sync"
)

// Driver abstracts an LED output sink.
type Driver interface {
	// Write pushes an RGB frame to hardware. len(rgb) must be 3*N.
	Write(rgb []byte) error
	// Close releases resources.
	Close() error
}

// Sim keeps the last frame in memory; used when no SPI port is available.
type Sim struct {
	mu     sync.Mutex
	count  int
	last   []byte
	frames int
}

func NewSim(count int) *Sim { return &Sim{count: count} }

func (s *Sim) Write(rgb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(rgb)%3 != 0 || len(rgb) > s.count*3 {
		return fmt.Errorf("rgb length %d does not match count %d", len(rgb), s.count)
	}
	s.last = append(s.last[:0], rgb...)
	s.frames++
	return nil
}

func (s *Sim) Close() error { return nil }

// Last returns a copy of the last frame written.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.last...)
}

// Frames returns how many frames were written.
func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Reorder copies rgb into dst with channels in order, e.g. "GRB".
func Reorder(dst, rgb []byte, order string) {
	if len(order) != 3 || order == "RGB" {
		copy(dst, rgb)
		return
	}
	for i := 0; i+2 < len(rgb); i += 3 {
		for j := 0; j < 3; j++ {
			switch order[j] {
			case 'R':
				dst[i+j] = rgb[i]
			case 'G':
				dst[i+j] = rgb[i+1]
			case 'B':
				dst[i+j] = rgb[i+2]
			default:
				dst[i+j] = rgb[i+1] // fallback
			}
		}
	}
}
