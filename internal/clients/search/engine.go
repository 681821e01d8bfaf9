package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

// Many indexers reject requests with default or script-identifying
// agents, so every request goes out with a desktop browser one.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

const defaultOrder = "seeders.desc"

// SearchResult is one parsed row from an indexer's result listing. It
// lives only for the duration of one search+match cycle.
type SearchResult struct {
	Name           string `json:"name"`
	Seeders        int    `json:"seeders"`
	Leechers       int    `json:"leechers"`
	Size           string `json:"size"`
	DetailURL      string `json:"detail_url,omitempty"`
	MagnetURI      string `json:"magnet_uri,omitempty"`
	TorrentFileURL string `json:"torrent_file_url,omitempty"`

	// The missing flags stay false when the link was found on the
	// search page or the engine can fetch it from the detail page.
	MagnetMissing  bool `json:"magnet_missing"`
	TorrentMissing bool `json:"torrent_missing"`

	Engine string `json:"engine"`
}

// Details is the outcome of a second request against a result's detail
// page, for engines that do not expose links on the listing itself.
type Details struct {
	MagnetURI      string `json:"magnet_uri,omitempty"`
	TorrentFileURL string `json:"torrent_file_url,omitempty"`
}

// Sort names a column and direction from an engine's order table.
type Sort struct {
	Field     string
	Direction string
}

func (s Sort) key() string { return s.Field + "." + s.Direction }

// Searcher is implemented by every engine, declarative or not.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, sort *Sort) ([]SearchResult, error)
	Details(ctx context.Context, detailURL, releaseName string) (Details, error)
}

// RequestError is returned for any transport failure or non-2xx
// response so callers can log which engine and URL misbehaved.
type RequestError struct {
	Engine string
	URL    string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("engine %s: request %s failed: %v", e.Engine, e.URL, e.Err)
	}
	return fmt.Sprintf("engine %s: request %s failed with status %d", e.Engine, e.URL, e.Status)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Extraction tells the engine where one field lives in a result row:
// a CSS selector, an optional attribute (text content when empty), and
// an optional named transform applied to the raw value.
type Extraction struct {
	Selector  string
	Attr      string
	Transform string
}

// EngineConfig drives the generic engine. Site-specific quirks are
// expressed only through the per-field Transform names; the parsing
// algorithm itself is identical for every site.
type EngineConfig struct {
	Name       string
	Mirror     string
	SearchPath string // contains {query} and {order} placeholders

	// RelativeLinks prefixes extracted detail/torrent URLs with the
	// mirror base.
	RelativeLinks bool

	RowSelector string
	Fields      map[string]Extraction // name, seeders, leechers, size, detail, magnet, torrent

	// Orderings maps "field.direction" to the site's order literal.
	// Unknown sorts fall back to seeders descending.
	Orderings map[string]string

	// DetailScope plus DetailFields describe the second-request page.
	// Both empty means the engine never needs a detail fetch.
	DetailScope  string
	DetailFields map[string]Extraction
}

// Engine scrapes one indexer site according to its EngineConfig.
type Engine struct {
	cfg        EngineConfig
	httpClient *http.Client
	log        *logrus.Logger
}

func NewEngine(cfg EngineConfig, timeout time.Duration, logger *logrus.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger,
	}
}

func (e *Engine) Name() string { return e.cfg.Name }

// Search fetches one result listing and parses it row by row. Rows
// without a release name are skipped as decorative. A failed request
// fails the whole call; a failed field extraction only leaves that
// field empty.
func (e *Engine) Search(ctx context.Context, query string, sort *Sort) ([]SearchResult, error) {
	order := e.cfg.Orderings[defaultOrder]
	if sort != nil {
		if lit, ok := e.cfg.Orderings[sort.key()]; ok {
			order = lit
		}
	}

	searchURL := e.cfg.Mirror + strings.NewReplacer(
		"{query}", url.QueryEscape(query),
		"{order}", order,
	).Replace(e.cfg.SearchPath)

	doc, err := e.fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	doc.Find(e.cfg.RowSelector).Each(func(_ int, row *goquery.Selection) {
		name := e.extract(row, e.cfg.Fields["name"])
		if name == "" {
			return
		}

		r := SearchResult{
			Name:     name,
			Seeders:  parseCount(e.extract(row, e.cfg.Fields["seeders"])),
			Leechers: parseCount(e.extract(row, e.cfg.Fields["leechers"])),
			Size:     NormalizeSize(e.extract(row, e.cfg.Fields["size"])),
			Engine:   e.cfg.Name,
		}

		r.DetailURL = e.link(e.extract(row, e.cfg.Fields["detail"]))
		r.MagnetURI = e.extract(row, e.cfg.Fields["magnet"])
		r.TorrentFileURL = e.link(e.extract(row, e.cfg.Fields["torrent"]))

		if r.TorrentFileURL == "" && r.MagnetURI != "" {
			r.TorrentFileURL = cacheTorrentURL(r.MagnetURI, r.Name)
		}

		_, magnetOnDetail := e.cfg.DetailFields["magnet"]
		_, torrentOnDetail := e.cfg.DetailFields["torrent"]
		r.MagnetMissing = r.MagnetURI == "" && !magnetOnDetail
		r.TorrentMissing = r.TorrentFileURL == "" && !torrentOnDetail

		results = append(results, r)
	})

	e.log.WithFields(logrus.Fields{"engine": e.cfg.Name, "query": query, "results": len(results)}).Debug("Search finished")
	return results, nil
}

// Details fetches a result's detail page for the links the listing did
// not carry. Engines with no detail selectors return an empty Details
// without any request.
func (e *Engine) Details(ctx context.Context, detailURL, releaseName string) (Details, error) {
	if len(e.cfg.DetailFields) == 0 {
		return Details{}, nil
	}

	doc, err := e.fetch(ctx, detailURL)
	if err != nil {
		return Details{}, err
	}

	scope := doc.Selection
	if e.cfg.DetailScope != "" {
		scope = doc.Find(e.cfg.DetailScope)
	}

	d := Details{
		MagnetURI:      e.extract(scope, e.cfg.DetailFields["magnet"]),
		TorrentFileURL: e.link(e.extract(scope, e.cfg.DetailFields["torrent"])),
	}
	if d.TorrentFileURL == "" && d.MagnetURI != "" {
		d.TorrentFileURL = cacheTorrentURL(d.MagnetURI, releaseName)
	}
	return d, nil
}

func (e *Engine) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &RequestError{Engine: e.cfg.Name, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Engine: e.cfg.Name, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Engine: e.cfg.Name, URL: rawURL, Status: resp.StatusCode}
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &RequestError{Engine: e.cfg.Name, URL: rawURL, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &RequestError{Engine: e.cfg.Name, URL: rawURL, Err: err}
	}
	return doc, nil
}

// extract pulls one field from a row. Any miss (empty selector, no
// match, missing attribute) degrades to an empty string.
func (e *Engine) extract(row *goquery.Selection, ex Extraction) string {
	if ex.Selector == "" {
		return ""
	}
	sel := row.Find(ex.Selector).First()
	if sel.Length() == 0 {
		return ""
	}

	var raw string
	if ex.Attr != "" {
		raw, _ = sel.Attr(ex.Attr)
	} else {
		raw = sel.Text()
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if ex.Transform != "" {
		if fn, ok := transforms[ex.Transform]; ok {
			raw = fn(raw)
		} else {
			e.log.WithFields(logrus.Fields{"engine": e.cfg.Name, "transform": ex.Transform}).Warn("Unknown transform")
		}
	}
	return raw
}

// link prefixes site-relative URLs with the mirror base. Magnet URIs
// never pass through here.
func (e *Engine) link(u string) string {
	if u == "" || !e.cfg.RelativeLinks {
		return u
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return e.cfg.Mirror + u
}

var btihHexRe = regexp.MustCompile(`(?i)btih:([0-9a-f]{40})`)

// cacheTorrentURL synthesizes a torrent-cache download link from the
// 40-hex info-hash inside a magnet URI, so a torrent file can still be
// offered when the site only serves magnets. Base32 hashes are not
// convertible here and yield no link.
func cacheTorrentURL(magnetURI, releaseName string) string {
	m := btihHexRe.FindStringSubmatch(magnetURI)
	if m == nil {
		return ""
	}
	return fmt.Sprintf("https://itorrents.org/torrent/%s.torrent?title=%s",
		strings.ToUpper(m[1]), url.QueryEscape(releaseName))
}

var digitsRe = regexp.MustCompile(`\d`)

// parseCount reads a seeder/leecher cell: digits only, so "1,234" and
// "56 seeders" both work.
func parseCount(s string) int {
	digits := strings.Join(digitsRe.FindAllString(s, -1), "")
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

var sizeRe = regexp.MustCompile(`(?i)^\s*([\d.,]+)\s*(B|Bytes|KB|MB|GB|TB|KiB|MiB|GiB|TiB)\s*$`)

var unitBytes = map[string]float64{
	"b": 1, "bytes": 1,
	"kb": 1e3, "mb": 1e6, "gb": 1e9, "tb": 1e12,
	"kib": 1 << 10, "mib": 1 << 20, "gib": 1 << 30, "tib": 1 << 40,
}

// NormalizeSize converts a recognized "<number><unit>" token to the
// canonical "X.XX MB" form using decimal megabytes. Unrecognized
// strings pass through unchanged.
func NormalizeSize(s string) string {
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f MB", n*unitBytes[strings.ToLower(m[2])]/1e6)
}

// SizeBytes parses a normalized or raw size string back into bytes.
// The second return is false when the string carries no usable size.
func SizeBytes(s string) (int64, bool) {
	m := sizeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return int64(n * unitBytes[strings.ToLower(m[2])]), true
}
