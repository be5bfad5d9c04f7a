// Package watermark embeds and detects the per-session inaudible
// fingerprint from spec.md §4.3.
package watermark

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"math"
	"sync"

	"golang.org/x/crypto/hkdf"
)

const (
	// CarrierHz is the modulation carrier inside the inaudible band.
	CarrierHz = 18000.0
	// BandLowHz/BandHighHz bound the embedding band.
	BandLowHz  = 17000.0
	BandHighHz = 19000.0
	// ChipsPerBit is the spread-spectrum chip length per encoded bit.
	ChipsPerBit = 1024
	// FingerprintBits is the number of bits HKDF expands per session.
	FingerprintBits = 64
	// AmplitudeDB is the target level relative to full scale (dBFS).
	AmplitudeDB = -40.0
)

// amplitude converts AmplitudeDB to a PCM16 sample amplitude.
func amplitude() float64 {
	peak := float64(math.MaxInt16)
	return peak * math.Pow(10, AmplitudeDB/20.0)
}

// fingerprintBits expands session_id into FingerprintBits bits of key
// material via HKDF(session_id, "wm"), per spec.md §4.3.
func fingerprintBits(sessionID []byte) []bool {
	kdf := hkdf.New(newSHA256, sessionID, nil, []byte("wm"))
	raw := make([]byte, FingerprintBits/8)
	if _, err := kdf.Read(raw); err != nil {
		panic("watermark: hkdf read failed: " + err.Error())
	}
	bits := make([]bool, FingerprintBits)
	for i := 0; i < FingerprintBits; i++ {
		byteIdx := i / 8
		bitIdx := uint(7 - i%8)
		bits[i] = (raw[byteIdx]>>bitIdx)&1 == 1
	}
	return bits
}

// chipSequence returns a deterministic pseudo-random ±1 spreading sequence
// of length ChipsPerBit, derived from sessionID, reused for every bit.
func chipSequence(sessionID []byte) []float64 {
	kdf := hkdf.New(newSHA256, sessionID, nil, []byte("wm-chip"))
	raw := make([]byte, (ChipsPerBit+7)/8)
	if _, err := kdf.Read(raw); err != nil {
		panic("watermark: hkdf read failed: " + err.Error())
	}
	chips := make([]float64, ChipsPerBit)
	for i := 0; i < ChipsPerBit; i++ {
		byteIdx := i / 8
		bitIdx := uint(7 - i%8)
		if (raw[byteIdx]>>bitIdx)&1 == 1 {
			chips[i] = 1
		} else {
			chips[i] = -1
		}
	}
	return chips
}

// Reference renders the full-length watermark waveform for a session at
// sampleRate, to be added to (or correlated against) PCM audio.
func Reference(sessionID []byte, sampleRate, numSamples int) []float64 {
	bits := fingerprintBits(sessionID)
	chips := chipSequence(sessionID)
	amp := amplitude()

	out := make([]float64, numSamples)
	bitSamples := ChipsPerBit
	for n := 0; n < numSamples; n++ {
		bitIdx := (n / bitSamples) % len(bits)
		chipIdx := n % bitSamples
		polarity := -1.0
		if bits[bitIdx] {
			polarity = 1.0
		}
		carrier := math.Cos(2 * math.Pi * CarrierHz * float64(n) / float64(sampleRate))
		out[n] = amp * polarity * chips[chipIdx] * carrier
	}
	return out
}

// Embed returns a copy of pcm (interleaved int16 samples, mono or stereo)
// with the session watermark additively embedded in every channel.
func Embed(pcm []int16, sampleRate, channels int, sessionID []byte) []int16 {
	if channels < 1 {
		channels = 1
	}
	frames := len(pcm) / channels
	ref := Reference(sessionID, sampleRate, frames)

	out := make([]int16, len(pcm))
	for frame := 0; frame < frames; frame++ {
		delta := ref[frame]
		for ch := 0; ch < channels; ch++ {
			idx := frame*channels + ch
			v := float64(pcm[idx]) + delta
			out[idx] = clampInt16(v)
		}
	}
	return out
}

func clampInt16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func newSHA256() hash.Hash { return sha256.New() }

// detectionThreshold is τ from spec.md §4.3.
const detectionThreshold = 0.6

// Registry tracks which session ids are eligible candidates for offline
// detection — the "registry of session_id → chip sequence" the spec
// describes. Chip sequences themselves are never stored; they are
// regenerated deterministically from the session id on demand, mirroring
// how KeyAliasStore never persists the keys it mints.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewRegistry constructs an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string][]byte)}
}

// Register records that sessionID is a candidate for future detection.
func (r *Registry) Register(sessionID []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[string(sessionID)] = append([]byte{}, sessionID...)
}

// Sessions returns a snapshot of registered session ids.
func (r *Registry) Sessions() [][]byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([][]byte, 0, len(r.sessions))
	for _, v := range r.sessions {
		out = append(out, v)
	}
	return out
}

// DetectionResult names the best-matching session and its correlation.
type DetectionResult struct {
	SessionID   []byte
	Correlation float64
	Matched     bool
}

// DetectSession correlates the embedding band of candidatePCM against every
// registered session's regenerated reference signal and returns the best
// match above τ.
func (r *Registry) DetectSession(candidatePCM []int16, sampleRate, channels int) DetectionResult {
	if channels < 1 {
		channels = 1
	}
	frames := len(candidatePCM) / channels
	mono := make([]float64, frames)
	for frame := 0; frame < frames; frame++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(candidatePCM[frame*channels+ch])
		}
		mono[frame] = sum / float64(channels)
	}

	// Correlate only the BandLowHz–BandHighHz band: both signals pass the same
	// two-pole band-pass filter, so audible programme material does not swamp
	// the mark.
	w0 := 2 * math.Pi * ((BandLowHz + BandHighHz) / 2) / float64(sampleRate)
	alpha := math.Sin(w0) * (BandHighHz - BandLowHz) / (BandLowHz + BandHighHz)
	g, a1, a2 := alpha/(1+alpha), -2*math.Cos(w0)/(1+alpha), (1-alpha)/(1+alpha)
	bandpass := func(x []float64) []float64 {
		y := make([]float64, len(x))
		for n := 2; n < len(x); n++ {
			y[n] = g*(x[n]-x[n-2]) - a1*y[n-1] - a2*y[n-2]
		}
		return y
	}
	mono = bandpass(mono)

	best := DetectionResult{}
	for _, sid := range r.Sessions() {
		ref := bandpass(Reference(sid, sampleRate, frames))
		corr := normalizedCorrelation(mono, ref)
		if corr > best.Correlation {
			best = DetectionResult{SessionID: sid, Correlation: corr}
		}
	}
	best.Matched = best.Correlation >= detectionThreshold
	return best
}

func normalizedCorrelation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// SessionIDHex formats a session id as the hex string used throughout
// Sectify's HTTP surface.
func SessionIDHex(sessionID []byte) string {
	return hex.EncodeToString(sessionID)
}
