// Package hls segments decrypted, watermarked PCM into AES-128-CBC
// encrypted .ts files and a playlist.m3u8, per spec.md §4.4.
package hls

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sectify/sectify/internal/auth"
	sectifycrypto "github.com/sectify/sectify/internal/domain/crypto"
	"github.com/sectify/sectify/internal/domain/keyalias"
)

const (
	// TargetSegmentSeconds is the nominal segment length from spec.md §4.4
	// (4s, ±10% to land on a whole number of PCM frames).
	TargetSegmentSeconds = 4
)

// Packager turns a PCM stream into an encrypted HLS rendition on disk.
type Packager struct {
	root         string
	masterSecret []byte
	aliases      *keyalias.Store

	mu        sync.Mutex
	inFlight  map[string]*packageCall
	completed map[string]*Manifest
}

type packageCall struct {
	done     chan struct{}
	manifest *Manifest
	err      error
}

// New constructs a Packager rooted at hlsRoot (spec.md §6's HLS_ROOT).
func New(hlsRoot string, masterSecret []byte, aliases *keyalias.Store) *Packager {
	return &Packager{
		root:         hlsRoot,
		masterSecret: masterSecret,
		aliases:      aliases,
		inFlight:     make(map[string]*packageCall),
		completed:    make(map[string]*Manifest),
	}
}

// Package segments pcm (interleaved int16, already watermarked) into
// encrypted ts files under <hls_root>/<track_id>/ and returns the rendered
// manifest. ownerUserID binds the minted key alias to the requesting user
// (empty for anonymous playback of a public track); callerIP binds it to
// the requester's coarse IP, per spec.md §4.5's KeyAlias data model.
// Packaging is idempotent per (trackID, sessionID): a call already in
// flight is joined rather than repeated, and a call after completion
// returns the cached manifest until Invalidate clears it — satisfying
// spec.md §4.4's "repeated calls return the same manifest while the grant
// lives".
func (p *Packager) Package(ctx context.Context, trackID, sessionID, ownerUserID, callerIP string, pcm []int16, sampleRate, channels int) (*Manifest, error) {
	key := trackID + "|" + sessionID

	p.mu.Lock()
	if m, ok := p.completed[key]; ok {
		p.mu.Unlock()
		return m, nil
	}
	if call, ok := p.inFlight[key]; ok {
		p.mu.Unlock()
		<-call.done
		return call.manifest, call.err
	}
	call := &packageCall{done: make(chan struct{})}
	p.inFlight[key] = call
	p.mu.Unlock()

	call.manifest, call.err = p.packageOnce(ctx, trackID, sessionID, ownerUserID, callerIP, pcm, sampleRate, channels)
	close(call.done)

	p.mu.Lock()
	delete(p.inFlight, key)
	if call.err == nil {
		p.completed[key] = call.manifest
	}
	p.mu.Unlock()

	return call.manifest, call.err
}

// Invalidate drops the cached manifest for (trackID, sessionID) so a future
// request repackages rather than serving a stale manifest. Grant revocation
// and expiry do not call it; a cached manifest stays until Invalidate runs.
func (p *Packager) Invalidate(trackID, sessionID string) {
	p.mu.Lock()
	delete(p.completed, trackID+"|"+sessionID)
	p.mu.Unlock()
}

func (p *Packager) packageOnce(ctx context.Context, trackID, sessionID, ownerUserID, callerIP string, pcm []int16, sampleRate, channels int) (*Manifest, error) {
	dir := filepath.Join(p.root, trackID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("hls: create track dir: %w", err)
	}

	if channels < 1 {
		channels = 1
	}
	frames := len(pcm) / channels
	framesPerSeg := TargetSegmentSeconds * sampleRate
	if framesPerSeg < 1 {
		framesPerSeg = 1
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("hls: generate segment salt: %w", err)
	}
	segKey := sectifycrypto.DeriveSegmentKey(p.masterSecret, salt)

	block, err := aes.NewCipher(segKey)
	if err != nil {
		return nil, fmt.Errorf("hls: build cipher: %w", err)
	}

	alias, err := p.aliases.MintBound(ctx, segKey, ownerUserID, auth.CoarseIP(callerIP))
	if err != nil {
		return nil, fmt.Errorf("hls: mint key alias: %w", err)
	}
	keyURI := fmt.Sprintf("/api/v1/stream/key/%s", alias)

	var written []string
	cleanup := func() {
		for _, f := range written {
			os.Remove(f)
		}
	}

	manifest := &Manifest{TrackID: trackID, SessionID: sessionID, TargetDurS: TargetSegmentSeconds}

	segIdx := 0
	for start := 0; start < frames; start += framesPerSeg {
		if ctx.Err() != nil {
			cleanup()
			return nil, ctx.Err()
		}
		end := start + framesPerSeg
		if end > frames {
			end = frames
		}
		segFrames := end - start
		raw := int16SliceToBytes(pcm[start*channels : end*channels])

		iv := segmentIV(segIdx)
		padded := pkcs7Pad(raw, block.BlockSize())
		encrypted := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(encrypted, padded)

		filename := fmt.Sprintf("seg_%03d.ts", segIdx)
		outPath := filepath.Join(dir, filename)
		if err := os.WriteFile(outPath, encrypted, 0o644); err != nil {
			cleanup()
			return nil, fmt.Errorf("hls: write segment %d: %w", segIdx, err)
		}
		written = append(written, outPath)

		manifest.Segments = append(manifest.Segments, Segment{
			Index:     segIdx,
			Filename:  filename,
			DurationS: float64(segFrames) / float64(sampleRate),
			IV:        iv,
			KeyURI:    keyURI,
		})
		segIdx++
	}

	playlistPath := filepath.Join(dir, "playlist.m3u8")
	if err := os.WriteFile(playlistPath, []byte(manifest.Render()), 0o644); err != nil {
		cleanup()
		return nil, fmt.Errorf("hls: write manifest: %w", err)
	}

	return manifest, nil
}

// segmentIV returns the big-endian segment index in a 16-byte IV, per
// spec.md §4.4.
func segmentIV(index int) [16]byte {
	var iv [16]byte
	binary.BigEndian.PutUint64(iv[8:], uint64(index))
	return iv
}

func int16SliceToBytes(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - (len(data) % blockSize)
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}
