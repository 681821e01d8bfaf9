package search

import (
	"net/url"
	"strings"
)

// Named value transforms referenced from EngineConfig field entries.
// These are the only place site-specific extraction quirks may live;
// everything else about parsing is uniform across engines.
var transforms = map[string]func(string) string{
	"unwrap-redirect": unwrapRedirect,
	"hash-to-magnet":  hashToMagnet,
	"cut-at-pipe":     cutAt("|"),
	"cut-at-newline":  cutAt("\n"),
}

// unwrapRedirect decodes interstitial wrapper links of the form
// /away.php?url=<encoded-target> down to the target URL.
func unwrapRedirect(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := u.Query().Get("url"); target != "" {
		return target
	}
	return raw
}

// hashToMagnet turns a bare info-hash cell into a usable magnet URI.
// Hashes are kept verbatim apart from trimming, hex and base32 alike.
func hashToMagnet(raw string) string {
	h := strings.TrimSpace(raw)
	if h == "" || strings.HasPrefix(strings.ToLower(h), "magnet:") {
		return raw
	}
	return "magnet:?xt=urn:btih:" + h
}

func cutAt(delim string) func(string) string {
	return func(raw string) string {
		if i := strings.Index(raw, delim); i >= 0 {
			return strings.TrimSpace(raw[:i])
		}
		return raw
	}
}
