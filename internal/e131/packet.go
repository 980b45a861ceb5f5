// Package e131 receives sACN (ANSI E1.31) DMX data and maps channels onto
// model variables.
package e131

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Port is the registered sACN UDP port.
const Port = 5568

const (
	vectorRootData  = 0x00000004
	vectorFrameData = 0x00000002
	vectorDMPSet    = 0x02

	offRootVector  = 18
	offFrameVector = 40
	offSource      = 44
	offPriority    = 108
	offSequence    = 111
	offOptions     = 112
	offUniverse    = 113
	offDMPVector   = 117
	offCount       = 123
	offValues      = 125

	// MaxChannels is the number of DMX slots after the start code.
	MaxChannels = 512
)

var acnID = []byte("ASC-E1.17\x00\x00\x00")

var (
	ErrShortPacket = errors.New("e131: packet too short")
	ErrNotData     = errors.New("e131: not a data packet")
)

// Packet is a decoded E1.31 data packet.
type Packet struct {
	Source    string
	Priority  uint8
	Sequence  uint8
	Options   uint8
	Universe  uint16
	StartCode uint8
	// Data holds the DMX slots; Data[0] is channel 1.
	Data []byte
}

// Decode parses buf. Data aliases buf.
func Decode(buf []byte) (Packet, error) {
	var p Packet
	if len(buf) < offValues+1 {
		return p, ErrShortPacket
	}
	if !bytes.Equal(buf[4:16], acnID) {
		return p, fmt.Errorf("bad ACN identifier: %w", ErrNotData)
	}
	if v := binary.BigEndian.Uint32(buf[offRootVector:]); v != vectorRootData {
		return p, fmt.Errorf("root vector %#x: %w", v, ErrNotData)
	}
	if v := binary.BigEndian.Uint32(buf[offFrameVector:]); v != vectorFrameData {
		return p, fmt.Errorf("framing vector %#x: %w", v, ErrNotData)
	}
	if buf[offDMPVector] != vectorDMPSet {
		return p, fmt.Errorf("dmp vector %#x: %w", buf[offDMPVector], ErrNotData)
	}
	// the count includes the start code
	count := int(binary.BigEndian.Uint16(buf[offCount:]))
	if count < 1 || count > MaxChannels+1 {
		return p, fmt.Errorf("property count %d: %w", count, ErrNotData)
	}
	if len(buf) < offValues+count {
		return p, ErrShortPacket
	}
	p.Source = string(bytes.TrimRight(buf[offSource:offPriority], "\x00"))
	p.Priority = buf[offPriority]
	p.Sequence = buf[offSequence]
	p.Options = buf[offOptions]
	p.Universe = binary.BigEndian.Uint16(buf[offUniverse:])
	p.StartCode = buf[offValues]
	p.Data = buf[offValues+1 : offValues+count]
	return p, nil
}

// Encode builds a data packet; used by tests and by tools that feed the
// controller.
func Encode(p Packet) []byte {
	n := offValues + 1 + len(p.Data)
	buf := make([]byte, n)
	binary.BigEndian.PutUint16(buf[0:], 0x0010)
	copy(buf[4:16], acnID)
	binary.BigEndian.PutUint16(buf[16:], 0x7000|uint16(n-16))
	binary.BigEndian.PutUint32(buf[offRootVector:], vectorRootData)
	binary.BigEndian.PutUint16(buf[38:], 0x7000|uint16(n-38))
	binary.BigEndian.PutUint32(buf[offFrameVector:], vectorFrameData)
	copy(buf[offSource:offPriority], p.Source)
	buf[offPriority] = p.Priority
	buf[offSequence] = p.Sequence
	buf[offOptions] = p.Options
	binary.BigEndian.PutUint16(buf[offUniverse:], p.Universe)
	binary.BigEndian.PutUint16(buf[115:], 0x7000|uint16(n-115))
	buf[offDMPVector] = vectorDMPSet
	buf[118] = 0xa1
	binary.BigEndian.PutUint16(buf[121:], 1)
	binary.BigEndian.PutUint16(buf[offCount:], uint16(len(p.Data)+1))
	buf[offValues] = p.StartCode
	copy(buf[offValues+1:], p.Data)
	return buf
}
