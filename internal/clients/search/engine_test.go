package search

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func htmlResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testEngine(cfg EngineConfig, rt roundTripFunc) *Engine {
	e := NewEngine(cfg, 5*time.Second, testLogger())
	e.httpClient = &http.Client{Transport: rt}
	return e
}

var fixtureConfig = EngineConfig{
	Name:        "fixture",
	Mirror:      "https://indexer.example",
	SearchPath:  "/search?q={query}&sort={order}",
	RowSelector: "table.results tr",
	Fields: map[string]Extraction{
		"name":     {Selector: "td.name a"},
		"detail":   {Selector: "td.name a", Attr: "href"},
		"magnet":   {Selector: "a.magnet", Attr: "href"},
		"seeders":  {Selector: "td.se"},
		"leechers": {Selector: "td.le"},
		"size":     {Selector: "td.size"},
	},
	Orderings:     map[string]string{"seeders.desc": "se_desc", "size.desc": "si_desc"},
	RelativeLinks: true,
}

const fixturePage = `<html><body><table class="results">
<tr><th>header row without a name cell</th></tr>
<tr>
  <td class="name"><a href="/torrent/1">Some.Show.S01E01.1080p.WEB</a></td>
  <td class="se">1,234</td><td class="le">56</td><td class="size">1.5 GB</td>
  <td><a class="magnet" href="magnet:?xt=urn:btih:dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c&amp;dn=x">m</a></td>
</tr>
<tr>
  <td class="name"><a href="/torrent/2">Some.Show.S01E01.720p.HDTV</a></td>
  <td class="se">88</td><td class="le">notanumber</td><td class="size">unknown</td>
</tr>
</table></body></html>`

func TestSearchParsesRows(t *testing.T) {
	var gotURL string
	e := testEngine(fixtureConfig, func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		if req.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent %q", req.Header.Get("User-Agent"))
		}
		return htmlResponse(200, fixturePage), nil
	})

	results, err := e.Search(context.Background(), "some show s01e01", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotURL != "https://indexer.example/search?q=some+show+s01e01&sort=se_desc" {
		t.Errorf("request URL = %s", gotURL)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (decorative row must be skipped)", len(results))
	}

	r := results[0]
	if r.Name != "Some.Show.S01E01.1080p.WEB" {
		t.Errorf("name = %q", r.Name)
	}
	if r.Seeders != 1234 || r.Leechers != 56 {
		t.Errorf("seeders/leechers = %d/%d", r.Seeders, r.Leechers)
	}
	if r.Size != "1500.00 MB" {
		t.Errorf("size = %q", r.Size)
	}
	if r.DetailURL != "https://indexer.example/torrent/1" {
		t.Errorf("detail = %q (relative link must be prefixed)", r.DetailURL)
	}
	if r.MagnetMissing {
		t.Error("magnet present but flagged missing")
	}
	if !strings.HasPrefix(r.TorrentFileURL, "https://itorrents.org/torrent/DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C.torrent") {
		t.Errorf("torrent cache URL not synthesized: %q", r.TorrentFileURL)
	}
	if r.TorrentMissing {
		t.Error("synthesized torrent link must clear the missing flag")
	}

	r2 := results[1]
	if r2.Leechers != 0 {
		t.Errorf("unparseable leechers = %d, want 0", r2.Leechers)
	}
	if r2.Size != "unknown" {
		t.Errorf("unrecognized size must pass through, got %q", r2.Size)
	}
	if !r2.MagnetMissing || !r2.TorrentMissing {
		t.Error("row without links must flag both missing")
	}
}

func TestSearchUnknownSortFallsBack(t *testing.T) {
	var gotURL string
	e := testEngine(fixtureConfig, func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		return htmlResponse(200, "<html></html>"), nil
	})

	if _, err := e.Search(context.Background(), "x", &Sort{Field: "comments", Direction: "asc"}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !strings.Contains(gotURL, "sort=se_desc") {
		t.Errorf("unknown sort must fall back to seeders descending, got %s", gotURL)
	}
}

func TestSearchRequestError(t *testing.T) {
	e := testEngine(fixtureConfig, func(req *http.Request) (*http.Response, error) {
		return htmlResponse(503, "busy"), nil
	})

	_, err := e.Search(context.Background(), "x", nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("want RequestError, got %v", err)
	}
	if reqErr.Engine != "fixture" || reqErr.Status != 503 {
		t.Errorf("error = %+v", reqErr)
	}
}

func TestDetailsWithoutSelectorsSkipsRequest(t *testing.T) {
	e := testEngine(fixtureConfig, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})

	d, err := e.Details(context.Background(), "https://indexer.example/torrent/1", "x")
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	if d.MagnetURI != "" || d.TorrentFileURL != "" {
		t.Errorf("expected empty details, got %+v", d)
	}
}

func TestDetailsFetchesMagnet(t *testing.T) {
	cfg := fixtureConfig
	cfg.DetailScope = "div.detail"
	cfg.DetailFields = map[string]Extraction{
		"magnet": {Selector: "a[href^='magnet:']", Attr: "href"},
	}
	e := testEngine(cfg, func(req *http.Request) (*http.Response, error) {
		return htmlResponse(200, `<html><body>
<a href="magnet:?xt=urn:btih:ffff">outside scope</a>
<div class="detail"><a href="magnet:?xt=urn:btih:dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c">dl</a></div>
</body></html>`), nil
	})

	d, err := e.Details(context.Background(), "https://indexer.example/torrent/1", "Some.Show.S01E01")
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	if !strings.Contains(d.MagnetURI, "dd8255ec") {
		t.Errorf("magnet = %q, want the in-scope link", d.MagnetURI)
	}
	if d.TorrentFileURL == "" {
		t.Error("torrent cache URL should be synthesized from the detail magnet")
	}
}

func TestSearchAppliesFieldTransform(t *testing.T) {
	cfg := fixtureConfig
	cfg.Fields = map[string]Extraction{
		"name":   {Selector: "td.name a"},
		"magnet": {Selector: "a.magnet", Attr: "href", Transform: "unwrap-redirect"},
	}
	page := `<html><body><table class="results"><tr>
<td class="name"><a href="/torrent/1">Some.Show.S01E01</a></td>
<td><a class="magnet" href="https://exit.example/?url=magnet%3A%3Fxt%3Durn%3Abtih%3Add8255ecdc7ca55fb0bbf81323d87062db1f6d1c">m</a></td>
</tr></table></body></html>`
	e := testEngine(cfg, func(req *http.Request) (*http.Response, error) {
		return htmlResponse(200, page), nil
	})

	results, err := e.Search(context.Background(), "x", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if !strings.HasPrefix(results[0].MagnetURI, "magnet:?xt=urn:btih:dd8255ec") {
		t.Errorf("redirect-wrapped magnet not unwrapped: %q", results[0].MagnetURI)
	}
}

func TestDetailsHashToMagnet(t *testing.T) {
	cfg := fixtureConfig
	cfg.DetailFields = map[string]Extraction{
		"magnet": {Selector: "div.info-hash", Transform: "hash-to-magnet"},
	}
	e := testEngine(cfg, func(req *http.Request) (*http.Response, error) {
		return htmlResponse(200, `<html><body>
<div class="info-hash">DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C</div>
</body></html>`), nil
	})

	d, err := e.Details(context.Background(), "https://indexer.example/torrent/1", "Some.Show.S01E01")
	if err != nil {
		t.Fatalf("Details failed: %v", err)
	}
	if d.MagnetURI != "magnet:?xt=urn:btih:DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C" {
		t.Errorf("bare hash not lifted to a magnet: %q", d.MagnetURI)
	}
}

func TestNormalizeSize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"1.5 GB", "1500.00 MB"},
		{"1024 KiB", "1.05 MB"}, // binary source, decimal target
		{"500 MB", "500.00 MB"},
		{"2 TiB", "2199023.26 MB"},
		{"731 Bytes", "0.00 MB"},
		{"n/a", "n/a"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeSize(c.in); got != c.want {
			t.Errorf("NormalizeSize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSizeBytes(t *testing.T) {
	if n, ok := SizeBytes("1500.00 MB"); !ok || n != 1500000000 {
		t.Errorf("SizeBytes(1500.00 MB) = %d, %v", n, ok)
	}
	if _, ok := SizeBytes("unknown"); ok {
		t.Error("unparsable size must report not-ok")
	}
}

func TestTransforms(t *testing.T) {
	if got := unwrapRedirect("https://mirror/away.php?url=https%3A%2F%2Ftarget%2Ffile.torrent"); got != "https://target/file.torrent" {
		t.Errorf("unwrapRedirect = %q", got)
	}
	if got := unwrapRedirect("https://mirror/plain"); got != "https://mirror/plain" {
		t.Errorf("unwrapRedirect passthrough = %q", got)
	}
	if got := hashToMagnet("DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C"); got != "magnet:?xt=urn:btih:DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C" {
		t.Errorf("hashToMagnet = %q", got)
	}
	if got := hashToMagnet("magnet:?xt=urn:btih:abc"); got != "magnet:?xt=urn:btih:abc" {
		t.Errorf("hashToMagnet must leave magnets alone, got %q", got)
	}
	if got := cutAt("|")("719.3 MiB | ULed by x"); got != "719.3 MiB" {
		t.Errorf("cutAt = %q", got)
	}
}

func TestRegistryResolvesDefault(t *testing.T) {
	r := NewRegistry(map[string]string{"thepiratebay": "https://tpb.mirror.example"}, "thepiratebay", testLogger())

	def := r.Default()
	if def == nil || def.Name() != "thepiratebay" {
		t.Fatalf("default engine = %v", def)
	}
	if e, ok := def.(*Engine); !ok || e.cfg.Mirror != "https://tpb.mirror.example" {
		t.Error("mirror override not applied")
	}

	s, err := r.Get("")
	if err != nil || s.Name() != "thepiratebay" {
		t.Errorf("Get(\"\") = %v, %v", s, err)
	}
	if _, err := r.Get("nope"); err == nil {
		t.Error("unknown engine must error")
	}
	if s, err := r.Get("showrss"); err != nil || s.Name() != "showrss" {
		t.Errorf("showrss lookup = %v, %v", s, err)
	}
}

func TestRegistryUnknownDefaultFallsBack(t *testing.T) {
	r := NewRegistry(nil, "doesnotexist", testLogger())
	if r.Default() == nil {
		t.Fatal("fallback default missing")
	}
}
