package search

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

// ShowRSSEngine crawls showrss.info, which has no query-parameter
// search at all. It resolves the show's numeric id from the browse
// index, then fetches that show's page and matches the season/episode
// token against entry titles. This is the only engine that replaces
// the declarative search flow wholesale.
type ShowRSSEngine struct {
	mirror     string
	httpClient *http.Client
	log        *logrus.Logger
}

func NewShowRSSEngine(mirror string, timeout time.Duration, logger *logrus.Logger) *ShowRSSEngine {
	if mirror == "" {
		mirror = "https://showrss.info"
	}
	return &ShowRSSEngine{
		mirror:     mirror,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger,
	}
}

func (e *ShowRSSEngine) Name() string { return "showrss" }

var (
	episodeTokenRe = regexp.MustCompile(`(?i)s\d{1,2}e\d{1,2}`)
	qualityTokenRe = regexp.MustCompile(`(?i)\b\d{3,4}p\b`)
)

// Search splits the query into a show name and an episode token, looks
// the show up on the browse index, then filters the show page's entry
// list. Sort is ignored; the site lists newest first and carries no
// seeder counts.
func (e *ShowRSSEngine) Search(ctx context.Context, query string, _ *Sort) ([]SearchResult, error) {
	token := episodeTokenRe.FindString(query)
	showName := strings.TrimSpace(episodeTokenRe.ReplaceAllString(query, ""))
	// Quality suffixes like "720p" don't appear in the browse index.
	showName = strings.TrimSpace(qualityTokenRe.ReplaceAllString(showName, ""))

	showURL, err := e.resolveShow(ctx, showName)
	if err != nil {
		return nil, err
	}
	if showURL == "" {
		e.log.WithFields(logrus.Fields{"engine": "showrss", "show": showName}).Debug("Show not listed")
		return nil, nil
	}

	doc, err := e.fetch(ctx, showURL)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	doc.Find("ul.user-timeline li a").Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		if name == "" {
			return
		}
		if token != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(token)) {
			return
		}
		magnet, _ := a.Attr("href")
		if !strings.HasPrefix(strings.ToLower(magnet), "magnet:") {
			return
		}
		torrentURL := cacheTorrentURL(magnet, name)
		results = append(results, SearchResult{
			Name:           name,
			Seeders:        1, // feed carries no swarm data
			MagnetURI:      magnet,
			TorrentFileURL: torrentURL,
			TorrentMissing: torrentURL == "",
			Engine:         "showrss",
		})
	})
	return results, nil
}

// Details is a no-op: every entry already carries its magnet.
func (e *ShowRSSEngine) Details(_ context.Context, _, _ string) (Details, error) {
	return Details{}, nil
}

// resolveShow scans the browse index's show selector for a
// case-insensitive name match and returns the show page URL.
func (e *ShowRSSEngine) resolveShow(ctx context.Context, showName string) (string, error) {
	doc, err := e.fetch(ctx, e.mirror+"/browse")
	if err != nil {
		return "", err
	}

	want := strings.ToLower(strings.TrimSpace(showName))
	var id string
	doc.Find("select#showselector option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if strings.ToLower(strings.TrimSpace(opt.Text())) == want {
			id, _ = opt.Attr("value")
			return false
		}
		return true
	})
	if id == "" {
		return "", nil
	}
	return e.mirror + "/browse/" + id, nil
}

func (e *ShowRSSEngine) fetch(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &RequestError{Engine: "showrss", URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Engine: "showrss", URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{Engine: "showrss", URL: rawURL, Status: resp.StatusCode}
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &RequestError{Engine: "showrss", URL: rawURL, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &RequestError{Engine: "showrss", URL: rawURL, Err: err}
	}
	return doc, nil
}
