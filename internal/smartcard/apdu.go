// Package smartcard provides the terminal side of ISO 7816 communication
// with eMRTD chips: APDU construction, BAC secure messaging and a readiness
// probe matching what reader devices report in their debug output.
package smartcard

import (
	"errors"
	"fmt"
)

// Command is an ISO 7816-4 command APDU (short form).
type Command struct {
	CLA, INS, P1, P2 byte
	Data             []byte
	Le               int
	HasLe            bool
}

// Serialize encodes the command, switching to extended length fields when the
// data exceeds 255 bytes or Le exceeds 256.
func (c *Command) Serialize() []byte {
	out := []byte{c.CLA, c.INS, c.P1, c.P2}
	extended := len(c.Data) > 255 || (c.HasLe && c.Le > 256)
	if len(c.Data) > 0 {
		if extended {
			out = append(out, 0x00, byte(len(c.Data)>>8), byte(len(c.Data)))
		} else {
			out = append(out, byte(len(c.Data)))
		}
		out = append(out, c.Data...)
	}
	if c.HasLe {
		if extended {
			if len(c.Data) == 0 {
				out = append(out, 0x00)
			}
			out = append(out, byte(c.Le>>8), byte(c.Le)) // 0x0000 encodes 65536
		} else {
			out = append(out, byte(c.Le)) // 0x00 encodes 256
		}
	}
	return out
}

// Response is a parsed response APDU.
type Response struct {
	Data     []byte
	SW1, SW2 byte
}

// ParseResponse splits payload and status word.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) < 2 {
		return nil, errors.New("response shorter than status word")
	}
	n := len(raw)
	return &Response{Data: raw[:n-2], SW1: raw[n-2], SW2: raw[n-1]}, nil
}

// SW returns the combined status word.
func (r *Response) SW() uint16 { return uint16(r.SW1)<<8 | uint16(r.SW2) }

// OK reports a 9000 status.
func (r *Response) OK() bool { return r.SW() == 0x9000 }

// StatusText translates common status words seen while reading documents.
func (r *Response) StatusText() string {
	switch r.SW() {
	case 0x9000:
		return "ok"
	case 0x6300:
		return "authentication failed"
	case 0x6982:
		return "security status not satisfied"
	case 0x6985:
		return "conditions of use not satisfied"
	case 0x6A82:
		return "file not found"
	case 0x6A86:
		return "incorrect parameters"
	case 0x6D00:
		return "instruction not supported"
	}
	return fmt.Sprintf("status %04X", r.SW())
}

// aidEMRTD is the eMRTD applet identifier (A0 00 00 02 47 10 01).
var aidEMRTD = []byte{0xA0, 0x00, 0x00, 0x02, 0x47, 0x10, 0x01}

// efCardAccess is the file identifier of EF.CardAccess, present on PACE chips.
var efCardAccess = []byte{0x01, 0x1C}

// SelectApplet selects the eMRTD application.
func SelectApplet() *Command {
	return &Command{CLA: 0x00, INS: 0xA4, P1: 0x04, P2: 0x0C, Data: aidEMRTD}
}

// SelectFile selects an elementary file by identifier.
func SelectFile(fid []byte) *Command {
	return &Command{CLA: 0x00, INS: 0xA4, P1: 0x02, P2: 0x0C, Data: fid}
}

// SelectCardAccess selects EF.CardAccess; success implies PACE support.
func SelectCardAccess() *Command { return SelectFile(efCardAccess) }

// GetChallenge requests the 8-byte chip nonce for BAC.
func GetChallenge() *Command {
	return &Command{CLA: 0x00, INS: 0x84, Le: 8, HasLe: true}
}

// ExternalAuthenticate sends the terminal authentication payload.
func ExternalAuthenticate(cmd []byte) *Command {
	return &Command{CLA: 0x00, INS: 0x82, Data: cmd, Le: 40, HasLe: true}
}

// ReadBinary reads le bytes at offset (15-bit short EF addressing).
func ReadBinary(offset uint16, le int) *Command {
	return &Command{CLA: 0x00, INS: 0xB0, P1: byte(offset >> 8), P2: byte(offset), Le: le, HasLe: true}
}
