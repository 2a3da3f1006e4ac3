package bac

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vectors from the Doc 9303 Part 11 BAC worked example
const (
	mrzInfo  = "L898902C<369080619406236"
	seedHex  = "239ab9cb282daf66231dc5a4df6bfbae"
	kEncHex  = "ab94fdecf2674fdfb9b391f85d7f76f2"
	kMacHex  = "7962d9ece03d1acd4c76089dce131543"
	rndICHex = "4608f91988702212"
	rndIFHex = "781723860c06c226"
	kIFDHex  = "0b795240cb7049b01c19b33e32804f0b"
	eIFDHex  = "72c29c2371cc9bdb65b779b8e8d37b29ecc154aa56a8799fae2f498f76ed92f2"
	mIFDHex  = "5f1448eea8ad90a7"
	respHex  = "46b9342a41396cd7386bf5803104d7cedc122b9132139baf2eedc94ee178534f2f2d235d074d7449"
	ksEncHex = "979ec13b1cbfe9dcd01ab0fed307eae5"
	ksMacHex = "f1cb1f1fb5adf208806b89dc579dc1f8"
	sscHex   = "887022120c06c226"
)

func fromHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestSeedFromMRZ(t *testing.T) {
	require.Equal(t, seedHex, hex.EncodeToString(SeedFromMRZ(mrzInfo)))
}

func TestDeriveKeys(t *testing.T) {
	keys, err := DeriveKeys(fromHex(t, seedHex))
	require.NoError(t, err)
	assert.Equal(t, kEncHex, hex.EncodeToString(keys.Enc))
	assert.Equal(t, kMacHex, hex.EncodeToString(keys.Mac))
}

func TestDeriveKeysRejectsShortSeed(t *testing.T) {
	_, err := DeriveKeys([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrBadSeed)
}

func TestBuildChallenge(t *testing.T) {
	keys, err := DeriveKeys(fromHex(t, seedHex))
	require.NoError(t, err)

	ch, err := buildChallenge(keys, fromHex(t, rndICHex), fromHex(t, rndIFHex), fromHex(t, kIFDHex))
	require.NoError(t, err)
	assert.Equal(t, eIFDHex, hex.EncodeToString(ch.EIFD))
	assert.Equal(t, mIFDHex, hex.EncodeToString(ch.MIFD))
	assert.Len(t, ch.Cmd(), 40)
}

func TestVerifyResponseDerivesSession(t *testing.T) {
	keys, err := DeriveKeys(fromHex(t, seedHex))
	require.NoError(t, err)
	ch, err := buildChallenge(keys, fromHex(t, rndICHex), fromHex(t, rndIFHex), fromHex(t, kIFDHex))
	require.NoError(t, err)

	sess, err := ch.VerifyResponse(keys, fromHex(t, respHex))
	require.NoError(t, err)
	assert.Equal(t, ksEncHex, hex.EncodeToString(sess.Keys.Enc))
	assert.Equal(t, ksMacHex, hex.EncodeToString(sess.Keys.Mac))
	assert.Equal(t, sscHex, hex.EncodeToString(sess.SSC))
}

func TestVerifyResponseRejectsTamperedMAC(t *testing.T) {
	keys, err := DeriveKeys(fromHex(t, seedHex))
	require.NoError(t, err)
	ch, err := buildChallenge(keys, fromHex(t, rndICHex), fromHex(t, rndIFHex), fromHex(t, kIFDHex))
	require.NoError(t, err)

	resp := fromHex(t, respHex)
	resp[39] ^= 0x01
	_, err = ch.VerifyResponse(keys, resp)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestVerifyResponseRejectsShortReply(t *testing.T) {
	keys, err := DeriveKeys(fromHex(t, seedHex))
	require.NoError(t, err)
	ch, err := NewChallenge(keys, fromHex(t, rndICHex))
	require.NoError(t, err)

	_, err = ch.VerifyResponse(keys, []byte{0x90, 0x00})
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestRetailMACIsDeterministic(t *testing.T) {
	key := fromHex(t, kMacHex)
	m1, err := RetailMAC(key, []byte("abc"))
	require.NoError(t, err)
	m2, err := RetailMAC(key, []byte("abc"))
	require.NoError(t, err)
	m3, err := RetailMAC(key, []byte("abd"))
	require.NoError(t, err)
	assert.Equal(t, m1, m2)
	assert.NotEqual(t, m1, m3)
	assert.Len(t, m1, 8)
}
