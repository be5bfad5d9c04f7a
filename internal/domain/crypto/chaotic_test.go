package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptFileHeaderPrefix(t *testing.T) {
	key := DeriveFileKey([]byte("a-very-secret-master-value-ok!!"), "user-1", "track-1")
	envelope, err := EncryptFile([]byte("hello sectify"), key)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(envelope), len(HeaderPrefix()))
	require.Equal(t, HeaderPrefix(), envelope[:5])
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := DeriveFileKey([]byte("a-very-secret-master-value-ok!!"), "user-1", "track-1")
	plaintext := []byte("the quick brown fox jumps over the lazy dog, repeated many times over")

	envelope, err := EncryptFile(plaintext, key)
	require.NoError(t, err)

	got, err := DecryptFile(envelope, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key1 := DeriveFileKey([]byte("a-very-secret-master-value-ok!!"), "user-1", "track-1")
	key2 := DeriveFileKey([]byte("a-very-secret-master-value-ok!!"), "user-2", "track-1")

	envelope, err := EncryptFile([]byte("payload"), key1)
	require.NoError(t, err)

	_, err = DecryptFile(envelope, key2)
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestTamperedByteFailsIntegrity(t *testing.T) {
	key := DeriveFileKey([]byte("a-very-secret-master-value-ok!!"), "user-1", "track-1")
	envelope, err := EncryptFile([]byte("payload that is long enough to tamper safely"), key)
	require.NoError(t, err)

	envelope[len(envelope)-10] ^= 0xFF

	_, err = DecryptFile(envelope, key)
	require.ErrorIs(t, err, ErrIntegrity)
}

func TestKeystreamIsDeterministic(t *testing.T) {
	key := []byte("some-file-key-bytes-0123456789ab")
	nonce := []byte("0123456789abcdef")

	a := Keystream(key, nonce, 256)
	b := Keystream(key, nonce, 256)
	require.Equal(t, a, b)
}

func TestKeystreamDiffersByNonce(t *testing.T) {
	key := []byte("some-file-key-bytes-0123456789ab")

	a := Keystream(key, []byte("0000000000000000"), 64)
	b := Keystream(key, []byte("1111111111111111"), 64)
	require.NotEqual(t, a, b)
}

// TestKeystreamDistribution is a coarse byte-distribution smoke test
// standing in for the chi-squared uniformity check from spec.md §4.2;
// a large sample should touch most of the byte space with no single value
// over-represented beyond a loose bound.
func TestKeystreamDistribution(t *testing.T) {
	key := []byte("distribution-test-key-0123456789")
	nonce := []byte("fedcba9876543210")
	const n = 1 << 16

	ks := Keystream(key, nonce, n)
	var counts [256]int
	for _, b := range ks {
		counts[b]++
	}

	expected := float64(n) / 256
	for _, c := range counts {
		require.Less(t, float64(c), expected*3, "byte value over-represented")
	}
}
