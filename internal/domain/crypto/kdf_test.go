package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveFileKeyUniqueness(t *testing.T) {
	secret := []byte("a-very-secret-master-value-ok!!")

	k1 := DeriveFileKey(secret, "user-1", "track-1")
	k2 := DeriveFileKey(secret, "user-2", "track-1")
	k3 := DeriveFileKey(secret, "user-1", "track-2")

	require.NotEqual(t, k1, k2)
	require.NotEqual(t, k1, k3)
	require.Len(t, k1, 32)
}

func TestDeriveFileKeyStable(t *testing.T) {
	secret := []byte("a-very-secret-master-value-ok!!")
	require.Equal(t, DeriveFileKey(secret, "u", "t"), DeriveFileKey(secret, "u", "t"))
}

func TestDeriveSegmentKeyLength(t *testing.T) {
	secret := []byte("a-very-secret-master-value-ok!!")
	salt := []byte("0123456789abcdef")
	key := DeriveSegmentKey(secret, salt)
	require.Len(t, key, 16)
}

func TestPurposesDiverge(t *testing.T) {
	secret := []byte("a-very-secret-master-value-ok!!")
	salt := []byte("0123456789abcdef")

	a := DeriveKey(secret, PurposeFileAtRest, salt)
	b := DeriveKey(secret, PurposeHLSSegment, salt)
	require.NotEqual(t, a, b)
}
