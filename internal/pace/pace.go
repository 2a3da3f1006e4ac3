// Package pace implements the password derivation, key derivation and
// generic-mapping steps of PACE (ICAO Doc 9303 Part 11), the Diffie-Hellman
// based replacement for BAC. Only the ECDH generic-mapping profiles over the
// NIST curves are supported; chips announcing other parameter sets fall back
// to BAC at the caller's discretion.
package pace

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrUnknownSuite means the chip announced an OID this terminal does not implement.
	ErrUnknownSuite = errors.New("unsupported PACE suite")
	// ErrUnknownParams means the standardized domain parameter id is not supported.
	ErrUnknownParams = errors.New("unsupported PACE domain parameters")
	// ErrBadPoint means a peer public key is not on the negotiated curve.
	ErrBadPoint = errors.New("point not on curve")
)

// kdf counters per Doc 9303.
const (
	counterEnc uint32 = 1
	counterMac uint32 = 2
	counterPi  uint32 = 3
)

// Suite describes a PACE protocol variant by OID.
type Suite struct {
	OID    string
	Name   string
	KeyLen int // session key length in bytes
}

// ECDH generic mapping suites with AES CBC/CMAC session ciphers.
var suites = []Suite{
	{OID: "0.4.0.127.0.7.2.2.4.2.2", Name: "PACE-ECDH-GM-AES-CBC-CMAC-128", KeyLen: 16},
	{OID: "0.4.0.127.0.7.2.2.4.2.3", Name: "PACE-ECDH-GM-AES-CBC-CMAC-192", KeyLen: 24},
	{OID: "0.4.0.127.0.7.2.2.4.2.4", Name: "PACE-ECDH-GM-AES-CBC-CMAC-256", KeyLen: 32},
}

// SuiteByOID resolves a chip-announced protocol OID.
func SuiteByOID(oid string) (*Suite, error) {
	for i := range suites {
		if suites[i].OID == oid {
			return &suites[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSuite, oid)
}

// Suites lists the supported protocol variants.
func Suites() []Suite {
	out := make([]Suite, len(suites))
	copy(out, suites)
	return out
}

// CurveForParams maps a standardized domain parameter id (Doc 9303 table) to
// a curve. Brainpool ids are not implemented.
func CurveForParams(id int) (elliptic.Curve, error) {
	switch id {
	case 12:
		return elliptic.P256(), nil
	case 15:
		return elliptic.P384(), nil
	case 18:
		return elliptic.P521(), nil
	}
	return nil, fmt.Errorf("%w: id %d", ErrUnknownParams, id)
}

// Password hashes the MRZ information string into the shared password K used
// to derive the nonce decryption key.
func Password(info string) []byte {
	sum := sha1.Sum([]byte(info))
	return sum[:]
}

// KDF derives length bytes from a shared secret and counter. 16-byte outputs
// use SHA-1 per ICAO 9303 part 11; longer keys use SHA-256.
func KDF(secret []byte, counter uint32, length int) []byte {
	d := make([]byte, 0, len(secret)+4)
	d = append(d, secret...)
	d = append(d, byte(counter>>24), byte(counter>>16), byte(counter>>8), byte(counter))
	if length <= 16 {
		sum := sha1.Sum(d)
		return sum[:length]
	}
	sum := sha256.Sum256(d)
	return sum[:length]
}

// NonceKey derives Kπ, the AES key that decrypts the chip's encrypted nonce.
func NonceKey(password []byte, suite *Suite) []byte {
	return KDF(password, counterPi, suite.KeyLen)
}

// DecryptNonce decrypts the chip's encrypted nonce z with Kπ (AES CBC, zero IV).
func DecryptNonce(key, z []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(z) == 0 || len(z)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("encrypted nonce length %d not block aligned", len(z))
	}
	out := make([]byte, len(z))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, z)
	return out, nil
}

// KeyPair is an ephemeral ECDH key on the negotiated curve.
type KeyPair struct {
	Curve elliptic.Curve
	D     []byte   // private scalar
	X, Y  *big.Int // public point
}

// GenerateKeyPair draws an ephemeral key pair for either mapping phase.
func GenerateKeyPair(curve elliptic.Curve) (*KeyPair, error) {
	d, x, y, err := elliptic.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Curve: curve, D: d, X: x, Y: y}, nil
}

// SharedPoint computes the Diffie-Hellman shared point with a peer public key.
func (k *KeyPair) SharedPoint(px, py *big.Int) (*big.Int, *big.Int, error) {
	if !k.Curve.IsOnCurve(px, py) {
		return nil, nil, ErrBadPoint
	}
	x, y := k.Curve.ScalarMult(px, py, k.D)
	return x, y, nil
}

// MappedGenerator performs the generic mapping step: G' = s*G + H where s is
// the decrypted nonce and H the shared point of the first DH exchange.
func MappedGenerator(curve elliptic.Curve, nonce []byte, hx, hy *big.Int) (*big.Int, *big.Int, error) {
	if !curve.IsOnCurve(hx, hy) {
		return nil, nil, ErrBadPoint
	}
	s := new(big.Int).SetBytes(nonce)
	s.Mod(s, curve.Params().N)
	if s.Sign() == 0 {
		return nil, nil, errors.New("nonce maps to zero scalar")
	}
	sx, sy := curve.ScalarBaseMult(s.Bytes())
	gx, gy := curve.Add(sx, sy, hx, hy)
	return gx, gy, nil
}

// EphemeralOnMapped draws the second-phase key pair against a mapped
// generator G'.
func EphemeralOnMapped(curve elliptic.Curve, gx, gy *big.Int) (*KeyPair, error) {
	d, _, _, err := elliptic.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, err
	}
	x, y := curve.ScalarMult(gx, gy, d)
	return &KeyPair{Curve: curve, D: d, X: x, Y: y}, nil
}

// SessionKeys holds the secure messaging keys agreed by PACE.
type SessionKeys struct {
	Enc []byte
	Mac []byte
}

// DeriveSessionKeys turns the x-coordinate of the final shared point into
// encryption and MAC session keys for the suite's cipher. The x-coordinate
// feeds the KDF as a fixed-length field element (FE2OS), keeping any leading
// zero octets.
func DeriveSessionKeys(curve elliptic.Curve, sharedX *big.Int, suite *Suite) *SessionKeys {
	secret := sharedX.FillBytes(make([]byte, (curve.Params().BitSize+7)/8))
	return &SessionKeys{
		Enc: KDF(secret, counterEnc, suite.KeyLen),
		Mac: KDF(secret, counterMac, suite.KeyLen),
	}
}
