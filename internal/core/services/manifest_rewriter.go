package services

import (
	"net/url"
	"regexp"
	"strings"
)

// uriAttrRe matches quoted URI attributes on directive lines, e.g. encryption
// keys (#EXT-X-KEY:...,URI="key.bin") and alternate renditions.
var uriAttrRe = regexp.MustCompile(`URI="([^"]+)"`)

// ManifestRewriter rewrites playlist documents so that every media, segment
// and sub-manifest reference re-enters the gateway carrying the same playback
// token. Rewriting is line-local and order-preserving: output line count
// always equals input line count.
type ManifestRewriter struct {
	proxyPath string
}

func NewManifestRewriter(proxyPath string) *ManifestRewriter {
	return &ManifestRewriter{proxyPath: proxyPath}
}

// Rewrite is a pure function of (manifest, playlistURL, token). The base for
// relative references is the playlist URL truncated after its last path
// separator, which is how playlist consumers resolve them.
func (r *ManifestRewriter) Rewrite(manifest, playlistURL, token string) string {
	base := playlistURL
	if idx := strings.LastIndex(playlistURL, "/"); idx >= 0 {
		base = playlistURL[:idx+1]
	}

	lines := strings.Split(manifest, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			if !strings.Contains(trimmed, `URI="`) {
				continue
			}
			lines[i] = uriAttrRe.ReplaceAllStringFunc(trimmed, func(match string) string {
				uri := uriAttrRe.FindStringSubmatch(match)[1]
				return `URI="` + r.proxyRef(resolveRef(uri, base), token) + `"`
			})
			continue
		}

		// Bare URI line: a segment or sub-manifest reference
		lines[i] = r.proxyRef(resolveRef(trimmed, base), token)
	}

	return strings.Join(lines, "\n")
}

func (r *ManifestRewriter) proxyRef(absoluteURL, token string) string {
	return r.proxyPath + "?url=" + url.QueryEscape(absoluteURL) + "&token=" + url.QueryEscape(token)
}

func resolveRef(ref, base string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
