package smartcard

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/veripass/veripass/backend/reader-services/internal/bac"
)

var (
	// ErrSecureMessaging covers malformed or tampered protected responses.
	ErrSecureMessaging = errors.New("secure messaging failure")
)

// Channel wraps APDUs in BAC secure messaging (3DES + retail MAC). It owns
// the send sequence counter, so a single goroutine must drive one channel.
type Channel struct {
	keys *bac.SessionKeys
	ssc  []byte
}

// NewChannel starts a secure messaging channel from an authenticated session.
func NewChannel(sess *bac.SecureSession) *Channel {
	ssc := make([]byte, 8)
	copy(ssc, sess.SSC)
	return &Channel{keys: sess.Keys, ssc: ssc}
}

// incrementSSC bumps the 8-byte big-endian counter before every DO.
func (ch *Channel) incrementSSC() {
	for i := 7; i >= 0; i-- {
		ch.ssc[i]++
		if ch.ssc[i] != 0 {
			return
		}
	}
}

// Wrap protects a plain command for transmission.
func (ch *Channel) Wrap(cmd *Command) (*Command, error) {
	ch.incrementSSC()

	maskedCLA := cmd.CLA | 0x0C
	header := []byte{maskedCLA, cmd.INS, cmd.P1, cmd.P2}

	var body []byte
	if len(cmd.Data) > 0 {
		enc, err := bac.Encrypt3DES(ch.keys.Enc, bac.Pad(cmd.Data))
		if err != nil {
			return nil, err
		}
		do87 := make([]byte, 0, len(enc)+3)
		do87 = append(do87, 0x87)
		do87 = appendLength(do87, len(enc)+1)
		do87 = append(do87, 0x01)
		do87 = append(do87, enc...)
		body = append(body, do87...)
	}
	if cmd.HasLe {
		body = append(body, 0x97, 0x01, byte(cmd.Le))
	}

	n := make([]byte, 0, 8+8+len(body))
	n = append(n, ch.ssc...)
	n = append(n, bac.Pad(header)...)
	n = append(n, body...)
	mac, err := bac.RetailMAC(ch.keys.Mac, n)
	if err != nil {
		return nil, err
	}
	body = append(body, 0x8E, 0x08)
	body = append(body, mac...)

	return &Command{CLA: maskedCLA, INS: cmd.INS, P1: cmd.P1, P2: cmd.P2, Data: body, Le: 0, HasLe: true}, nil
}

// Unwrap verifies and decrypts a protected response.
func (ch *Channel) Unwrap(resp *Response) (*Response, error) {
	ch.incrementSSC()

	var do87, do99, do8e []byte
	rest := resp.Data
	for len(rest) > 0 {
		tag, value, tail, err := readTLV(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSecureMessaging, err)
		}
		switch tag {
		case 0x87:
			do87 = rest[:len(rest)-len(tail)]
		case 0x99:
			do99 = rest[:len(rest)-len(tail)]
		case 0x8E:
			do8e = value
		default:
			return nil, fmt.Errorf("%w: unexpected data object %02X", ErrSecureMessaging, tag)
		}
		rest = tail
	}
	if do99 == nil || do8e == nil {
		return nil, fmt.Errorf("%w: missing status or MAC object", ErrSecureMessaging)
	}

	k := make([]byte, 0, 8+len(do87)+len(do99))
	k = append(k, ch.ssc...)
	k = append(k, do87...)
	k = append(k, do99...)
	mac, err := bac.RetailMAC(ch.keys.Mac, k)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(mac, do8e) != 1 {
		return nil, fmt.Errorf("%w: response MAC mismatch", ErrSecureMessaging)
	}

	out := &Response{SW1: do99[len(do99)-2], SW2: do99[len(do99)-1]}
	if do87 != nil {
		_, value, _, err := readTLV(do87)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSecureMessaging, err)
		}
		if len(value) < 1 || value[0] != 0x01 {
			return nil, fmt.Errorf("%w: unsupported padding indicator", ErrSecureMessaging)
		}
		plain, err := bac.Decrypt3DES(ch.keys.Enc, value[1:])
		if err != nil {
			return nil, err
		}
		data, err := bac.Unpad(plain)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSecureMessaging, err)
		}
		out.Data = data
	}
	return out, nil
}

// Transceive wraps, exchanges and unwraps in one step.
func (ch *Channel) Transceive(dev Device, cmd *Command) (*Response, error) {
	wrapped, err := ch.Wrap(cmd)
	if err != nil {
		return nil, err
	}
	resp, err := Exchange(dev, wrapped)
	if err != nil {
		return nil, err
	}
	return ch.Unwrap(resp)
}

// appendLength writes a BER length (short form or single-byte long form).
func appendLength(dst []byte, n int) []byte {
	if n < 0x80 {
		return append(dst, byte(n))
	}
	if n <= 0xFF {
		return append(dst, 0x81, byte(n))
	}
	return append(dst, 0x82, byte(n>>8), byte(n))
}

// readTLV parses one tag-length-value object, returning the remaining bytes.
func readTLV(b []byte) (tag byte, value, rest []byte, err error) {
	if len(b) < 2 {
		return 0, nil, nil, errors.New("truncated data object")
	}
	tag = b[0]
	lb := b[1]
	var n, skip int
	switch {
	case lb < 0x80:
		n, skip = int(lb), 2
	case lb == 0x81:
		if len(b) < 3 {
			return 0, nil, nil, errors.New("truncated length")
		}
		n, skip = int(b[2]), 3
	case lb == 0x82:
		if len(b) < 4 {
			return 0, nil, nil, errors.New("truncated length")
		}
		n, skip = int(b[2])<<8|int(b[3]), 4
	default:
		return 0, nil, nil, errors.New("unsupported length form")
	}
	if len(b) < skip+n {
		return 0, nil, nil, errors.New("truncated value")
	}
	return tag, b[skip : skip+n], b[skip+n:], nil
}

// equalSSC is a test hook comparing the current counter.
func (ch *Channel) equalSSC(v []byte) bool { return bytes.Equal(ch.ssc, v) }
