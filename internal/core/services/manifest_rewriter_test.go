package services

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const proxyPath = "/api/v1/proxy"

func TestManifestRewriter_LineCountPreserved(t *testing.T) {
	rewriter := NewManifestRewriter(proxyPath)

	manifest := "#EXTM3U\n#EXT-X-VERSION:3\n\n#EXTINF:10.0,\nseg1.ts\n#EXTINF:10.0,\nseg2.ts\n"
	out := rewriter.Rewrite(manifest, "https://host/path/stream/chan.m3u8", "tok")

	assert.Equal(t,
		len(strings.Split(manifest, "\n")),
		len(strings.Split(out, "\n")),
		"rewriting must preserve line count")
}

func TestManifestRewriter_RelativeResolution(t *testing.T) {
	rewriter := NewManifestRewriter(proxyPath)

	out := rewriter.Rewrite("seg1.ts", "https://host/path/stream/chan.m3u8", "tok")

	parsed, err := url.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, proxyPath, parsed.Path)
	assert.Equal(t, "https://host/path/stream/seg1.ts", parsed.Query().Get("url"))
	assert.Equal(t, "tok", parsed.Query().Get("token"))
}

func TestManifestRewriter_AbsoluteURLsPassThroughResolution(t *testing.T) {
	rewriter := NewManifestRewriter(proxyPath)

	out := rewriter.Rewrite("https://cdn.other.com/seg1.ts", "https://host/stream/chan.m3u8", "tok")

	parsed, err := url.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.other.com/seg1.ts", parsed.Query().Get("url"))
}

func TestManifestRewriter_DirectiveURIAttribute(t *testing.T) {
	rewriter := NewManifestRewriter(proxyPath)

	manifest := `#EXT-X-KEY:METHOD=AES-128,URI="key.bin",IV=0x1234`
	out := rewriter.Rewrite(manifest, "https://host/stream/chan.m3u8", "tok")

	assert.True(t, strings.HasPrefix(out, "#EXT-X-KEY:METHOD=AES-128,URI=\""))
	assert.Contains(t, out, url.QueryEscape("https://host/stream/key.bin"))
	assert.Contains(t, out, "token=tok")
	assert.True(t, strings.HasSuffix(out, `",IV=0x1234`))
}

func TestManifestRewriter_PlainDirectivesAndBlanksUntouched(t *testing.T) {
	rewriter := NewManifestRewriter(proxyPath)

	manifest := "#EXTM3U\n\n#EXT-X-TARGETDURATION:10"
	out := rewriter.Rewrite(manifest, "https://host/stream/chan.m3u8", "tok")

	assert.Equal(t, manifest, out)
}

func TestManifestRewriter_TokenPropagatedToEveryReference(t *testing.T) {
	rewriter := NewManifestRewriter(proxyPath)

	token := "a token+with/special=chars"
	manifest := "#EXTM3U\nsub.m3u8\nseg1.ts"
	out := rewriter.Rewrite(manifest, "https://ex.com/live/chan.m3u8", token)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#EXTM3U", lines[0])

	for _, line := range lines[1:] {
		parsed, err := url.Parse(line)
		require.NoError(t, err)
		assert.Equal(t, token, parsed.Query().Get("token"))
		assert.True(t, strings.HasPrefix(parsed.Query().Get("url"), "https://ex.com/live/"))
	}
}

func TestManifestRewriter_MasterPlaylist(t *testing.T) {
	rewriter := NewManifestRewriter(proxyPath)

	manifest := strings.Join([]string{
		"#EXTM3U",
		`#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aud",URI="audio/en.m3u8"`,
		"#EXT-X-STREAM-INF:BANDWIDTH=1280000",
		"low/index.m3u8",
		"#EXT-X-STREAM-INF:BANDWIDTH=2560000",
		"high/index.m3u8",
	}, "\n")

	out := rewriter.Rewrite(manifest, "https://host/live/master.m3u8", "tok")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)

	assert.Contains(t, lines[1], url.QueryEscape("https://host/live/audio/en.m3u8"))
	assert.Equal(t, "#EXT-X-STREAM-INF:BANDWIDTH=1280000", lines[2])

	parsed, err := url.Parse(lines[3])
	require.NoError(t, err)
	assert.Equal(t, "https://host/live/low/index.m3u8", parsed.Query().Get("url"))
}
