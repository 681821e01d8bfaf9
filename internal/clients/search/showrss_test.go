package search

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

const browsePage = `<html><body>
<select id="showselector">
<option value="">Select a show</option>
<option value="17">Some Show</option>
<option value="42">Another Show</option>
</select>
</body></html>`

const showPage = `<html><body><ul class="user-timeline">
<li><a href="magnet:?xt=urn:btih:dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c&amp;dn=x">Some.Show.S01E01.720p.WEB</a></li>
<li><a href="magnet:?xt=urn:btih:aaaa5555ecdc7ca55fb0bbf81323d87062db1f6d&amp;dn=y">Some.Show.S01E02.720p.WEB</a></li>
<li><a href="/show/17">Some.Show.S01E01.not.a.magnet</a></li>
</ul></body></html>`

func testShowRSS(rt roundTripFunc) *ShowRSSEngine {
	e := NewShowRSSEngine("https://showrss.example", 5*time.Second, testLogger())
	e.httpClient = &http.Client{Transport: rt}
	return e
}

func TestShowRSSSearchResolvesAndFilters(t *testing.T) {
	var urls []string
	e := testShowRSS(func(req *http.Request) (*http.Response, error) {
		urls = append(urls, req.URL.String())
		switch req.URL.Path {
		case "/browse":
			return htmlResponse(200, browsePage), nil
		case "/browse/17":
			return htmlResponse(200, showPage), nil
		}
		t.Errorf("unexpected request %s", req.URL)
		return htmlResponse(404, ""), nil
	})

	results, err := e.Search(context.Background(), "some show s01e01 720p", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://showrss.example/browse" || urls[1] != "https://showrss.example/browse/17" {
		t.Fatalf("crawl sequence = %v", urls)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (other episodes and plain links must be dropped)", len(results))
	}

	r := results[0]
	if r.Name != "Some.Show.S01E01.720p.WEB" {
		t.Errorf("name = %q", r.Name)
	}
	if !strings.HasPrefix(r.MagnetURI, "magnet:?xt=urn:btih:dd8255ec") {
		t.Errorf("magnet = %q", r.MagnetURI)
	}
	if r.Seeders != 1 {
		t.Errorf("seeders = %d, want the fixed placeholder 1", r.Seeders)
	}
	if !strings.HasPrefix(r.TorrentFileURL, "https://itorrents.org/torrent/DD8255ECDC7CA55FB0BBF81323D87062DB1F6D1C.torrent") {
		t.Errorf("torrent cache URL not synthesized: %q", r.TorrentFileURL)
	}
	if r.Engine != "showrss" {
		t.Errorf("engine = %q", r.Engine)
	}
}

func TestShowRSSSearchShowNotListed(t *testing.T) {
	requests := 0
	e := testShowRSS(func(req *http.Request) (*http.Response, error) {
		requests++
		return htmlResponse(200, browsePage), nil
	})

	results, err := e.Search(context.Background(), "unlisted show s02e03", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results != nil {
		t.Errorf("unlisted show must yield no results, got %v", results)
	}
	if requests != 1 {
		t.Errorf("unlisted show must not fetch a show page, requests = %d", requests)
	}
}

func TestShowRSSSearchWithoutEpisodeToken(t *testing.T) {
	e := testShowRSS(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/browse":
			return htmlResponse(200, browsePage), nil
		default:
			return htmlResponse(200, showPage), nil
		}
	})

	// No SxxEyy token in the query: every magnet entry is returned.
	results, err := e.Search(context.Background(), "some show", nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}
