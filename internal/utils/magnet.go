package utils

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/sirupsen/logrus"
)

var (
	hexHashRe    = regexp.MustCompile(`(?i)btih:([0-9a-f]{40})`)
	base32HashRe = regexp.MustCompile(`(?i)btih:([2-7a-z]{32})`)
)

// ExtractInfoHash pulls the BitTorrent info-hash out of a magnet URI.
// 40-hex hashes are lower-cased. A 32-character base32 hash is uppercased
// and returned verbatim, without decoding to hex; dedup logic treats
// identifiers as opaque strings, so both forms stay stable across runs.
func ExtractInfoHash(magnetURI string) (string, bool) {
	if m := hexHashRe.FindStringSubmatch(magnetURI); m != nil {
		return strings.ToLower(m[1]), true
	}
	if m := base32HashRe.FindStringSubmatch(magnetURI); m != nil {
		return strings.ToUpper(m[1]), true
	}
	return "", false
}

// ConvertMagnetToTorrent fetches torrent metadata for a magnet link and
// returns the bencoded .torrent payload, for clients that only accept
// files. The swarm is left untouched beyond the metadata exchange.
func ConvertMagnetToTorrent(magnetURI string, timeout time.Duration, dataPath string, logger *logrus.Logger) ([]byte, error) {
	cfg := torrent.NewDefaultClientConfig()
	cfg.NoUpload = true
	cfg.DisablePEX = true
	cfg.DataDir = dataPath

	client, err := torrent.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating torrent client: %w", err)
	}
	defer client.Close()

	t, err := client.AddMagnet(magnetURI)
	if err != nil {
		return nil, fmt.Errorf("error adding magnet: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	logger.Debug("Fetching metadata for magnet link")

	select {
	case <-t.GotInfo():
		mi := t.Metainfo()
		var buf bytes.Buffer
		if err := mi.Write(&buf); err != nil {
			return nil, fmt.Errorf("failed to write bencoded metainfo: %w", err)
		}
		return buf.Bytes(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("timeout reached while fetching metadata for magnet")
	}
}
