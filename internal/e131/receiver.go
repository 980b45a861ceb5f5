package e131

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Receiver reads sACN packets from UDP and queues them for the main loop.
type Receiver struct {
	conn    net.PacketConn
	packets chan Packet

	Received atomic.Uint64
	Errors   atomic.Uint64
	Dropped  atomic.Uint64
}

// Listen binds addr, e.g. ":5568".
func Listen(addr string, queue int) (*Receiver, error) {
	c, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("e131 listen %s: %w", addr, err)
	}
	return &Receiver{conn: c, packets: make(chan Packet, queue)}, nil
}

// Addr returns the bound address.
func (r *Receiver) Addr() net.Addr { return r.conn.LocalAddr() }

// Packets is drained by the main loop.
func (r *Receiver) Packets() <-chan Packet { return r.packets }

// Run reads until ctx is done. A full queue drops the packet.
func (r *Receiver) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.conn.Close()
	}()
	for {
		buf := make([]byte, 638)
		n, _, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return ctx.Err()
			}
			return fmt.Errorf("e131 read: %w", err)
		}
		p, err := Decode(buf[:n])
		if err != nil {
			r.Errors.Add(1)
			log.Debug().Err(err).Msg("e131 decode")
			continue
		}
		r.Received.Add(1)
		select {
		case r.packets <- p:
		default:
			r.Dropped.Add(1)
		}
	}
}

// Close stops Run.
func (r *Receiver) Close() error { return r.conn.Close() }
