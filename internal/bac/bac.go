// Package bac implements the Basic Access Control key derivation and mutual
// authentication steps of ICAO Doc 9303 Part 11. The chip releases its data
// only after the terminal proves knowledge of keys derived from the printed
// machine readable zone.
package bac

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrBadSeed means the key seed has the wrong length.
	ErrBadSeed = errors.New("key seed must be 16 bytes")
	// ErrAuthFailed means the chip response failed MAC or nonce verification.
	// The FAQ category "wrong keys" maps here: it almost always means the MRZ
	// fields used for derivation were misread.
	ErrAuthFailed = errors.New("mutual authentication failed")
)

// kdf counters per Doc 9303: 1 derives encryption keys, 2 derives MAC keys.
const (
	counterEnc uint32 = 1
	counterMac uint32 = 2
)

// SessionKeys holds a 3DES encryption key and a MAC key, both 16 bytes in
// two-key form (K1 || K2).
type SessionKeys struct {
	Enc []byte
	Mac []byte
}

// SeedFromMRZ hashes the MRZ information string (document number, birth date
// and expiry date with their check digits) into the 16-byte BAC key seed.
func SeedFromMRZ(info string) []byte {
	sum := sha1.Sum([]byte(info))
	return sum[:16]
}

// DeriveKeys expands a 16-byte seed into 3DES encryption and MAC keys using
// the SHA-1 based key derivation of Doc 9303 with DES parity adjustment.
func DeriveKeys(seed []byte) (*SessionKeys, error) {
	if len(seed) != 16 {
		return nil, ErrBadSeed
	}
	return &SessionKeys{
		Enc: kdf(seed, counterEnc),
		Mac: kdf(seed, counterMac),
	}, nil
}

func kdf(seed []byte, counter uint32) []byte {
	d := make([]byte, 0, 20)
	d = append(d, seed...)
	d = binary.BigEndian.AppendUint32(d, counter)
	sum := sha1.Sum(d)
	key := sum[:16]
	adjustParity(key)
	return key
}

// adjustParity sets every byte to odd parity as DES key schedules expect.
func adjustParity(key []byte) {
	for i, b := range key {
		if bits := popcount(b >> 1); bits%2 == 0 {
			key[i] = b&0xFE | 1
		} else {
			key[i] = b &^ 1
		}
	}
}

func popcount(b byte) int {
	n := 0
	for ; b != 0; b &= b - 1 {
		n++
	}
	return n
}

// tdesKey expands a two-key 16-byte value into the 24-byte K1|K2|K1 form the
// stdlib cipher expects.
func tdesKey(k []byte) []byte {
	out := make([]byte, 24)
	copy(out, k)
	copy(out[16:], k[:8])
	return out
}

// encrypt3DESCBC runs 3DES in CBC mode with a zero IV as mandated for BAC.
func encrypt3DESCBC(key, plaintext []byte) ([]byte, error) {
	block, err := des.NewTripleDESCipher(tdesKey(key))
	if err != nil {
		return nil, err
	}
	if len(plaintext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("plaintext length %d not block aligned", len(plaintext))
	}
	out := make([]byte, len(plaintext))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out, nil
}

func decrypt3DESCBC(key, ciphertext []byte) ([]byte, error) {
	block, err := des.NewTripleDESCipher(tdesKey(key))
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("ciphertext length %d not block aligned", len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

// Pad applies ISO 9797-1 padding method 2: a mandatory 0x80 byte then zeros
// up to the block boundary.
func Pad(data []byte) []byte {
	out := make([]byte, 0, len(data)+8)
	out = append(out, data...)
	out = append(out, 0x80)
	for len(out)%8 != 0 {
		out = append(out, 0x00)
	}
	return out
}

// Unpad strips ISO 9797-1 method 2 padding.
func Unpad(data []byte) ([]byte, error) {
	for i := len(data) - 1; i >= 0; i-- {
		switch data[i] {
		case 0x00:
			continue
		case 0x80:
			return data[:i], nil
		default:
			return nil, errors.New("malformed padding")
		}
	}
	return nil, errors.New("malformed padding")
}

// Encrypt3DES exposes the zero-IV 3DES CBC transform for secure messaging.
func Encrypt3DES(key, plaintext []byte) ([]byte, error) {
	return encrypt3DESCBC(key, plaintext)
}

// Decrypt3DES is the inverse of Encrypt3DES.
func Decrypt3DES(key, ciphertext []byte) ([]byte, error) {
	return decrypt3DESCBC(key, ciphertext)
}

// RetailMAC computes ISO 9797-1 MAC algorithm 3 (single DES CBC with a final
// 3DES step) over data using a 16-byte key, with padding method 2.
func RetailMAC(key, data []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, errors.New("retail MAC key must be 16 bytes")
	}
	d1, err := des.NewCipher(key[:8])
	if err != nil {
		return nil, err
	}
	d2, err := des.NewCipher(key[8:])
	if err != nil {
		return nil, err
	}
	padded := Pad(data)
	h := make([]byte, 8)
	tmp := make([]byte, 8)
	for i := 0; i < len(padded); i += 8 {
		for j := 0; j < 8; j++ {
			tmp[j] = h[j] ^ padded[i+j]
		}
		d1.Encrypt(h, tmp)
	}
	d2.Decrypt(tmp, h)
	d1.Encrypt(h, tmp)
	return h, nil
}

// Challenge is the terminal's side of the EXTERNAL AUTHENTICATE exchange.
type Challenge struct {
	RndIFD []byte // terminal nonce, 8 bytes
	KIFD   []byte // terminal key contribution, 16 bytes
	EIFD   []byte // encrypted S = RND.IFD || RND.IC || K.IFD
	MIFD   []byte // retail MAC over EIFD
}

// Cmd returns the 40-byte command payload E.IFD || M.IFD.
func (c *Challenge) Cmd() []byte {
	out := make([]byte, 0, 40)
	out = append(out, c.EIFD...)
	out = append(out, c.MIFD...)
	return out
}

// NewChallenge builds the terminal authentication payload for the chip nonce
// rndIC using derived document keys. Random material is drawn from crypto/rand.
func NewChallenge(keys *SessionKeys, rndIC []byte) (*Challenge, error) {
	rndIFD := make([]byte, 8)
	if _, err := rand.Read(rndIFD); err != nil {
		return nil, err
	}
	kIFD := make([]byte, 16)
	if _, err := rand.Read(kIFD); err != nil {
		return nil, err
	}
	return buildChallenge(keys, rndIC, rndIFD, kIFD)
}

func buildChallenge(keys *SessionKeys, rndIC, rndIFD, kIFD []byte) (*Challenge, error) {
	if len(rndIC) != 8 {
		return nil, errors.New("chip nonce must be 8 bytes")
	}
	s := make([]byte, 0, 32)
	s = append(s, rndIFD...)
	s = append(s, rndIC...)
	s = append(s, kIFD...)
	eifd, err := encrypt3DESCBC(keys.Enc, s)
	if err != nil {
		return nil, err
	}
	mifd, err := RetailMAC(keys.Mac, eifd)
	if err != nil {
		return nil, err
	}
	return &Challenge{RndIFD: rndIFD, KIFD: kIFD, EIFD: eifd, MIFD: mifd}, nil
}

// SecureSession holds the channel keys and send sequence counter established
// after successful mutual authentication.
type SecureSession struct {
	Keys *SessionKeys
	SSC  []byte
}

// VerifyResponse checks the chip's EXTERNAL AUTHENTICATE reply (E.IC || M.IC),
// confirms the echoed terminal nonce and derives the secure messaging session
// keys from the XOR of both key contributions.
func (c *Challenge) VerifyResponse(keys *SessionKeys, resp []byte) (*SecureSession, error) {
	if len(resp) != 40 {
		return nil, fmt.Errorf("%w: response length %d", ErrAuthFailed, len(resp))
	}
	eic, mic := resp[:32], resp[32:]
	mac, err := RetailMAC(keys.Mac, eic)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(mac, mic) != 1 {
		return nil, fmt.Errorf("%w: response MAC mismatch", ErrAuthFailed)
	}
	r, err := decrypt3DESCBC(keys.Enc, eic)
	if err != nil {
		return nil, err
	}
	// R = RND.IC || RND.IFD || K.IC
	rndIC, rndIFD, kIC := r[:8], r[8:16], r[16:32]
	if !bytes.Equal(rndIFD, c.RndIFD) {
		return nil, fmt.Errorf("%w: terminal nonce not echoed", ErrAuthFailed)
	}

	seed := make([]byte, 16)
	for i := range seed {
		seed[i] = kIC[i] ^ c.KIFD[i]
	}
	sessionKeys, err := DeriveKeys(seed)
	if err != nil {
		return nil, err
	}
	ssc := make([]byte, 0, 8)
	ssc = append(ssc, rndIC[4:]...)
	ssc = append(ssc, rndIFD[4:]...)
	return &SecureSession{Keys: sessionKeys, SSC: ssc}, nil
}
