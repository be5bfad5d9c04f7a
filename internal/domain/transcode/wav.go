package transcode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnsupportedFormat covers anything WAVDecoder can't parse: a container
// other than canonical PCM WAV, or a PCM encoding other than 16-bit.
var ErrUnsupportedFormat = errors.New("transcode: unsupported wav format")

// WAVDecoder decodes canonical PCM16 WAV (the "RIFF....WAVEfmt " container
// produced by every common encoder and DAW export). It is the only
// Transcoder Sectify ships in-tree; real deployments wire in the external
// subprocess tool the Transcoder interface exists to make swappable, and
// this decoder covers local development and tests without one.
type WAVDecoder struct{}

// NewWAVDecoder constructs a WAVDecoder.
func NewWAVDecoder() *WAVDecoder { return &WAVDecoder{} }

// Decode parses raw as a canonical PCM16 WAV file and returns its samples.
func (d *WAVDecoder) Decode(ctx context.Context, raw []byte) (PCM, error) {
	if len(raw) < 44 {
		return PCM{}, fmt.Errorf("%w: file too short", ErrUnsupportedFormat)
	}
	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return PCM{}, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedFormat)
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		data          []byte
		sawFmt        bool
	)

	offset := 12
	for offset+8 <= len(raw) {
		chunkID := string(raw[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(raw[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(raw) {
			chunkSize = len(raw) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return PCM{}, fmt.Errorf("%w: fmt chunk too short", ErrUnsupportedFormat)
			}
			audioFormat := binary.LittleEndian.Uint16(raw[body : body+2])
			if audioFormat != 1 { // PCM
				return PCM{}, fmt.Errorf("%w: audio format %d is not PCM", ErrUnsupportedFormat, audioFormat)
			}
			channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(raw[body+14 : body+16]))
			sawFmt = true
		case "data":
			data = raw[body : body+chunkSize]
		}

		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++ // chunks are word-aligned
		}
	}

	if !sawFmt {
		return PCM{}, fmt.Errorf("%w: missing fmt chunk", ErrUnsupportedFormat)
	}
	if data == nil {
		return PCM{}, fmt.Errorf("%w: missing data chunk", ErrUnsupportedFormat)
	}
	if bitsPerSample != 16 {
		return PCM{}, fmt.Errorf("%w: %d-bit PCM, only 16-bit is supported", ErrUnsupportedFormat, bitsPerSample)
	}
	if channels < 1 {
		return PCM{}, fmt.Errorf("%w: invalid channel count", ErrUnsupportedFormat)
	}

	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}

	return PCM{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}
