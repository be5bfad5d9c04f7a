package transcode

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildWAV(sampleRate, channels int, samples []int16) []byte {
	dataBytes := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dataBytes[i*2:], uint16(s))
	}

	blockAlign := channels * 2
	byteRate := sampleRate * blockAlign

	buf := make([]byte, 0, 44+len(dataBytes))
	buf = append(buf, []byte("RIFF")...)
	buf = appendUint32(buf, uint32(36+len(dataBytes)))
	buf = append(buf, []byte("WAVE")...)

	buf = append(buf, []byte("fmt ")...)
	buf = appendUint32(buf, 16)
	buf = appendUint16(buf, 1) // PCM
	buf = appendUint16(buf, uint16(channels))
	buf = appendUint32(buf, uint32(sampleRate))
	buf = appendUint32(buf, uint32(byteRate))
	buf = appendUint16(buf, uint16(blockAlign))
	buf = appendUint16(buf, 16) // bits per sample

	buf = append(buf, []byte("data")...)
	buf = appendUint32(buf, uint32(len(dataBytes)))
	buf = append(buf, dataBytes...)
	return buf
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func TestWAVDecoderDecodesCanonicalPCM16(t *testing.T) {
	want := []int16{100, -200, 300, -400}
	raw := buildWAV(8000, 2, want)

	pcm, err := NewWAVDecoder().Decode(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, 8000, pcm.SampleRate)
	require.Equal(t, 2, pcm.Channels)
	require.Equal(t, want, pcm.Samples)
}

func TestWAVDecoderRejectsNonPCMFormat(t *testing.T) {
	raw := buildWAV(8000, 1, []int16{1, 2})
	// audioFormat field is at byte offset 20
	binary.LittleEndian.PutUint16(raw[20:22], 3) // IEEE float

	_, err := NewWAVDecoder().Decode(context.Background(), raw)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWAVDecoderRejectsNon16Bit(t *testing.T) {
	raw := buildWAV(8000, 1, []int16{1, 2})
	// bitsPerSample field is at byte offset 34
	binary.LittleEndian.PutUint16(raw[34:36], 8)

	_, err := NewWAVDecoder().Decode(context.Background(), raw)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWAVDecoderRejectsMissingRIFFHeader(t *testing.T) {
	_, err := NewWAVDecoder().Decode(context.Background(), make([]byte, 44))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
