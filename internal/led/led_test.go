package led

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"
)

func TestNRZWrite(t *testing.T) {
	buf := bytes.Buffer{}
	d, err := NewNRZ(spitest.NewRecordRaw(&buf), 2, 2500*physic.KiloHertz, "GRB")
	require.NoError(t, err)
	assert.Equal(t, "nrzled{recordraw}", d.String())

	require.NoError(t, d.Write([]byte{0xFF, 0, 0, 0, 0, 0xFF}))
	assert.GreaterOrEqual(t, buf.Len(), 18, "three encoded bytes per channel byte")

	assert.Error(t, d.Write(make([]byte, 9)))
	assert.Error(t, d.Write(make([]byte, 4)))
	require.NoError(t, d.Close())
	assert.Error(t, d.Write([]byte{0, 0, 0}))
	assert.Equal(t, "nrzled{closed}", d.String())
	assert.NoError(t, d.Close())
}

func TestNRZRejectsEmptyStrip(t *testing.T) {
	_, err := NewNRZ(spitest.NewRecordRaw(&bytes.Buffer{}), 0, 0, "")
	assert.Error(t, err)
}

func TestSim(t *testing.T) {
	s := NewSim(2)
	require.NoError(t, s.Write([]byte{1, 2, 3}))
	require.NoError(t, s.Write([]byte{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, s.Last())
	assert.Equal(t, 2, s.Frames())
	assert.Error(t, s.Write(make([]byte, 9)))
}

func TestOpenSim(t *testing.T) {
	d, err := Open("sim", "", 10, 0, "")
	require.NoError(t, err)
	_, ok := d.(*Sim)
	assert.True(t, ok)
}

func TestReorder(t *testing.T) {
	dst := make([]byte, 6)
	Reorder(dst, []byte{1, 2, 3, 4, 5, 6}, "GRB")
	assert.Equal(t, []byte{2, 1, 3, 5, 4, 6}, dst)
	Reorder(dst, []byte{1, 2, 3, 4, 5, 6}, "")
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, dst)
}
