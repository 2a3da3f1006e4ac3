package smartcard

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veripass/veripass/backend/reader-services/internal/mrz"
)

// scriptedDevice answers APDUs from a canned table keyed on serialized bytes.
type scriptedDevice struct {
	replies map[string][]byte
	healthy error
}

func (d *scriptedDevice) Close() error       { return nil }
func (d *scriptedDevice) String() string     { return "scripted" }
func (d *scriptedDevice) Connection() string { return "test" }

func (d *scriptedDevice) Transceive(tx []byte) ([]byte, error) {
	if reply, ok := d.replies[string(tx)]; ok {
		return reply, nil
	}
	return []byte{0x6A, 0x82}, nil
}

func (d *scriptedDevice) IsHealthy() error { return d.healthy }

func parsedSpecimen(t *testing.T) *mrz.MRZ {
	t.Helper()
	zone, err := mrz.Parse([]string{
		"P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<",
		"L898902C36UTO7408122F1204159ZE184226B<<<<<10",
	})
	require.NoError(t, err)
	return zone
}

func TestProbePrefersPACE(t *testing.T) {
	dev := &scriptedDevice{replies: map[string][]byte{
		string(SelectApplet().Serialize()):     {0x90, 0x00},
		string(SelectCardAccess().Serialize()): {0x90, 0x00},
	}}
	r := Probe(parsedSpecimen(t), dev)
	assert.True(t, r.Ready())
	assert.True(t, r.MRZComplete)
	assert.True(t, r.ChipReachable)
	assert.Equal(t, ProtocolPACE, r.Protocol)
}

func TestProbeFallsBackToBAC(t *testing.T) {
	dev := &scriptedDevice{replies: map[string][]byte{
		string(SelectApplet().Serialize()): {0x90, 0x00},
	}}
	r := Probe(parsedSpecimen(t), dev)
	assert.True(t, r.Ready())
	assert.Equal(t, ProtocolBAC, r.Protocol)
}

func TestProbeChipUnreachable(t *testing.T) {
	dev := &scriptedDevice{replies: map[string][]byte{}}
	r := Probe(parsedSpecimen(t), dev)
	assert.False(t, r.Ready())
	assert.True(t, r.MRZComplete)
	assert.False(t, r.ChipReachable)
	assert.Equal(t, ProtocolNone, r.Protocol)
	assert.Contains(t, r.Detail, "chip select failed")
}

func TestProbeUnhealthyDevice(t *testing.T) {
	dev := &scriptedDevice{healthy: errors.New("field dead")}
	r := Probe(parsedSpecimen(t), dev)
	assert.False(t, r.ChipReachable)
	assert.Contains(t, r.Detail, "reader unhealthy")
}

func TestProbeNilMRZAndDevice(t *testing.T) {
	r := Probe(nil, nil)
	assert.False(t, r.Ready())
	assert.Contains(t, r.Detail, "MRZ missing")
}

func TestReadinessString(t *testing.T) {
	r := &Readiness{MRZComplete: true, ChipReachable: true, Protocol: ProtocolBAC}
	lines := bytes.Split([]byte(r.String()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "MRZ Fields Complete: true", string(lines[0]))
	assert.Equal(t, "Chip Reachable: true", string(lines[1]))
	assert.Equal(t, "Access Protocol Ready: true (bac)", string(lines[2]))
}
