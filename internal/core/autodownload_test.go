package core

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"episodarr/internal/clients/search"
	"episodarr/internal/clients/torrent"
	"episodarr/internal/config"
	"episodarr/internal/database/models"
)

type fakeStore struct {
	mu         sync.Mutex
	candidates []models.Candidate
}

func (s *fakeStore) AiringBetween(from, to time.Time) ([]models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out, nil
}

func (s *fakeStore) SetDownloadID(episodeID int, downloadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.candidates {
		if s.candidates[i].Episode.ID == episodeID {
			id := downloadID
			s.candidates[i].Episode.DownloadID = &id
		}
	}
	return nil
}

func (s *fakeStore) MarkDownloaded(episodeID int) error { return nil }

func (s *fakeStore) WithDownloadID() ([]models.Episode, error) { return nil, nil }

type fakeLog struct {
	mu   sync.Mutex
	rows []models.Activity
}

func (l *fakeLog) Append(a *models.Activity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, *a)
	return nil
}

func (l *fakeLog) byStatus(status models.ActivityStatus) []models.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Activity
	for _, a := range l.rows {
		if a.Status == status {
			out = append(out, a)
		}
	}
	return out
}

type fakeSearcher struct {
	results []search.SearchResult
	queries []string
}

func (f *fakeSearcher) Name() string { return "fake" }

func (f *fakeSearcher) Search(_ context.Context, query string, _ *search.Sort) ([]search.SearchResult, error) {
	f.queries = append(f.queries, query)
	return f.results, nil
}

func (f *fakeSearcher) Details(context.Context, string, string) (search.Details, error) {
	return search.Details{}, nil
}

type fakeResolver struct{ s search.Searcher }

func (r fakeResolver) Get(string) (search.Searcher, error) { return r.s, nil }
func (r fakeResolver) Default() search.Searcher            { return r.s }

type fakeClient struct {
	mu    sync.Mutex
	added []string
}

func (c *fakeClient) Protocol() string { return "fake" }
func (c *fakeClient) Ping() error      { return nil }
func (c *fakeClient) List() ([]torrent.Record, error) {
	return nil, nil
}
func (c *fakeClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added = append(c.added, magnetURI)
	return "client-id-1", nil
}
func (c *fakeClient) Start(string) error             { return nil }
func (c *fakeClient) Stop(string) error              { return nil }
func (c *fakeClient) Pause(string) error             { return nil }
func (c *fakeClient) Remove(string) error            { return nil }
func (c *fakeClient) Files(string) ([]string, error) { return nil, nil }

type fakeClientSource struct{ c torrent.Client }

func (s fakeClientSource) Active() (torrent.Client, error) { return s.c, nil }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Client.DownloadPath = "/downloads/tv"
	cfg.Client.Label = "episodarr"
	cfg.Settings = config.Settings{
		TorrentingEnabled: true,
		MinSeeders:        50,
		SearchQuality:     "720p",
		LookbackDays:      2,
		DelayMinutes:      15,
		MaxSizeMB:         4096,
		BatchWorkers:      2,
	}
	return cfg
}

func newTestEngine(store *fakeStore, log *fakeLog, searcher search.Searcher, client torrent.Client) *DecisionEngine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewDecisionEngine(testConfig(), store, log, fakeResolver{searcher}, fakeClientSource{client}, nil, logger)
}

const goodMagnet = "magnet:?xt=urn:btih:dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c&dn=x"
const weakMagnet = "magnet:?xt=urn:btih:aaaa5555ecdc7ca55fb0bbf81323d87062db1f6d&dn=y"

func TestRunBatchPicksBySeedersAndFilters(t *testing.T) {
	store := &fakeStore{candidates: []models.Candidate{testCandidate()}}
	log := &fakeLog{}
	searcher := &fakeSearcher{results: []search.SearchResult{
		{Name: "some.show.S01E01.720p.WEB", Seeders: 10, MagnetURI: weakMagnet},
		{Name: "Some.Show.S01E01.720p.HDTV", Seeders: 60, MagnetURI: goodMagnet},
	}}
	client := &fakeClient{}

	summary, err := newTestEngine(store, log, searcher, client).RunBatch(context.Background(), false)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if summary.Grabbed != 1 || summary.Skipped != 0 || summary.Errors != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	if len(client.added) != 1 || client.added[0] != goodMagnet {
		t.Fatalf("client adds = %v, want only the 60-seeder magnet", client.added)
	}

	grabbed := log.byStatus(models.StatusGrabbed)
	if len(grabbed) != 1 {
		t.Fatalf("grabbed rows = %d", len(grabbed))
	}
	if grabbed[0].Detail != "Some.Show.S01E01.720p.HDTV" {
		t.Errorf("grabbed detail = %q", grabbed[0].Detail)
	}
	if grabbed[0].SearchQuery != "some show S01E01 720p" {
		t.Errorf("logged query = %q", grabbed[0].SearchQuery)
	}

	// The stored identifier is the magnet's own info-hash, not the
	// client's identifier.
	id := store.candidates[0].Episode.DownloadID
	if id == nil || *id != "dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c" {
		t.Errorf("stored download id = %v", id)
	}
}

func TestRunBatchSecondRunIsIdempotent(t *testing.T) {
	store := &fakeStore{candidates: []models.Candidate{testCandidate()}}
	log := &fakeLog{}
	searcher := &fakeSearcher{results: []search.SearchResult{
		{Name: "Some.Show.S01E01.720p.HDTV", Seeders: 60, MagnetURI: goodMagnet},
	}}
	client := &fakeClient{}
	engine := newTestEngine(store, log, searcher, client)

	if _, err := engine.RunBatch(context.Background(), false); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	summary, err := engine.RunBatch(context.Background(), false)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if summary.Grabbed != 0 || summary.Skipped != 1 {
		t.Fatalf("second run summary = %+v", summary)
	}
	if len(client.added) != 1 {
		t.Fatalf("client adds after two runs = %d, want 1", len(client.added))
	}
	inflight := log.byStatus(models.StatusHasDownload)
	if len(inflight) != 1 {
		t.Errorf("second run must log the in-flight skip, rows = %d", len(inflight))
	}
}

func TestRunBatchZeroResults(t *testing.T) {
	store := &fakeStore{candidates: []models.Candidate{testCandidate()}}
	log := &fakeLog{}
	client := &fakeClient{}

	if _, err := newTestEngine(store, log, &fakeSearcher{}, client).RunBatch(context.Background(), false); err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if rows := log.byStatus(models.StatusNoResults); len(rows) != 1 {
		t.Fatalf("no-results rows = %d", len(rows))
	}
	if len(client.added) != 0 {
		t.Error("nothing may be added without results")
	}
}

func TestRunBatchNoMatch(t *testing.T) {
	store := &fakeStore{candidates: []models.Candidate{testCandidate()}}
	log := &fakeLog{}
	searcher := &fakeSearcher{results: []search.SearchResult{
		{Name: "Entirely.Different.Show.S05E09", Seeders: 500, MagnetURI: goodMagnet},
	}}
	client := &fakeClient{}

	if _, err := newTestEngine(store, log, searcher, client).RunBatch(context.Background(), false); err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if rows := log.byStatus(models.StatusNoMatch); len(rows) != 1 {
		t.Fatalf("no-match rows = %d", len(rows))
	}
	if len(client.added) != 0 {
		t.Error("a non-matching release must not be added")
	}
}

func TestRunBatchTorrentingDisabled(t *testing.T) {
	store := &fakeStore{candidates: []models.Candidate{testCandidate()}}
	log := &fakeLog{}
	client := &fakeClient{}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := testConfig()
	cfg.Settings.TorrentingEnabled = false
	engine := NewDecisionEngine(cfg, store, log, fakeResolver{&fakeSearcher{}}, fakeClientSource{client}, nil, logger)

	summary, err := engine.RunBatch(context.Background(), false)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if summary.Grabbed != 0 || summary.Skipped != 0 || len(log.rows) != 0 {
		t.Errorf("disabled run must do nothing, summary = %+v rows = %d", summary, len(log.rows))
	}

	// force overrides the disabled setting.
	forced, err := engine.RunBatch(context.Background(), true)
	if err != nil {
		t.Fatalf("forced RunBatch failed: %v", err)
	}
	if forced.Grabbed+forced.Skipped == 0 {
		t.Error("forced run must process candidates")
	}
}

// echoSearcher answers every query with one matching release and keeps
// the query order it observed across workers.
type echoSearcher struct {
	mu      sync.Mutex
	queries []string
}

func (f *echoSearcher) Name() string { return "fake" }

func (f *echoSearcher) Search(_ context.Context, query string, _ *search.Sort) ([]search.SearchResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	return []search.SearchResult{{
		Name:      strings.ReplaceAll(query, " ", ".") + ".HDTV",
		Seeders:   60,
		MagnetURI: goodMagnet,
		Engine:    "fake",
	}}, nil
}

func (f *echoSearcher) Details(context.Context, string, string) (search.Details, error) {
	return search.Details{}, nil
}

func (f *echoSearcher) queryIndex(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, q := range f.queries {
		if q == query {
			return i
		}
	}
	return -1
}

func batchCandidate(showID, episodeID, episode int, searchName string) models.Candidate {
	c := testCandidate()
	c.Show.ID = showID
	c.Show.Name = searchName
	c.Show.SearchName = searchName
	c.Episode.ID = episodeID
	c.Episode.Episode = episode
	return c
}

func TestRunBatchShardsByShow(t *testing.T) {
	// Two shows land on different workers (ids 2 and 3, two workers);
	// each show's episodes must be searched in air order.
	store := &fakeStore{candidates: []models.Candidate{
		batchCandidate(2, 11, 1, "some show"),
		batchCandidate(2, 12, 2, "some show"),
		batchCandidate(3, 21, 1, "other show"),
		batchCandidate(3, 22, 2, "other show"),
	}}
	log := &fakeLog{}
	searcher := &echoSearcher{}
	client := &fakeClient{}

	summary, err := newTestEngine(store, log, searcher, client).RunBatch(context.Background(), false)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if summary.Grabbed != 4 || summary.Skipped != 0 || summary.Errors != 0 {
		t.Errorf("summary = %+v, want 4 grabbed", summary)
	}
	if rows := log.byStatus(models.StatusGrabbed); len(rows) != 4 {
		t.Errorf("grabbed rows = %d, want 4", len(rows))
	}
	if len(client.added) != 4 {
		t.Errorf("client adds = %d, want 4", len(client.added))
	}

	for _, show := range []string{"some show", "other show"} {
		first := searcher.queryIndex(show + " S01E01 720p")
		second := searcher.queryIndex(show + " S01E02 720p")
		if first == -1 || second == -1 {
			t.Fatalf("missing queries for %q: %v", show, searcher.queries)
		}
		if first > second {
			t.Errorf("%q searched out of air order: %v", show, searcher.queries)
		}
	}

	for _, c := range store.candidates {
		if c.Episode.DownloadID == nil {
			t.Errorf("episode %d missing stored download id", c.Episode.ID)
		}
	}
}
