package core

import (
	"testing"
	"time"

	"episodarr/internal/clients/search"
	"episodarr/internal/database/models"
)

func testRunConfig() RunConfig {
	return RunConfig{
		TorrentingEnabled: true,
		MinSeeders:        5,
		Quality:           "720p",
		LookbackDays:      2,
		DelayMinutes:      15,
		MaxSizeBytes:      4096e6,
		Workers:           1,
		Now:               time.Now(),
	}
}

func testCandidate() models.Candidate {
	return models.Candidate{
		Episode: models.Episode{
			ID:           1,
			Season:       1,
			Episode:      1,
			FirstAiredMs: time.Now().Add(-3 * time.Hour).UnixMilli(),
		},
		Show: models.Show{
			ID:               1,
			Name:             "Some Show",
			SearchName:       "some show",
			RuntimeMinutes:   30,
			AutoDownload:     true,
			UseGlobalQuality: true,
			UseGlobalInclude: true,
			UseGlobalExclude: true,
		},
	}
}

func TestEligibilityOrder(t *testing.T) {
	rc := testRunConfig()
	id := "abc"

	cases := []struct {
		name   string
		mutate func(*models.Candidate)
		want   models.ActivityStatus
	}{
		{"downloaded", func(c *models.Candidate) { c.Episode.Downloaded = true }, models.StatusAlreadyDownloaded},
		{"watched", func(c *models.Candidate) { c.Episode.Watched = true }, models.StatusAlreadyWatched},
		{"in flight", func(c *models.Candidate) { c.Episode.DownloadID = &id }, models.StatusHasDownload},
		{"show hidden", func(c *models.Candidate) { c.Show.Hidden = true }, models.StatusIneligible},
		{"auto-download off", func(c *models.Candidate) { c.Show.AutoDownload = false }, models.StatusIneligible},
		{"special hidden", func(c *models.Candidate) { c.Episode.Season = 0 }, models.StatusIneligible},
		{"no search name", func(c *models.Candidate) { c.Show.SearchName = " " }, models.StatusNoSearchName},
	}
	for _, tc := range cases {
		c := testCandidate()
		tc.mutate(&c)
		status, _, terminal := checkEligibility(c, rc)
		if !terminal || status != tc.want {
			t.Errorf("%s: got status %d terminal=%v, want %d", tc.name, status, terminal, tc.want)
		}
	}

	// Downloaded wins over watched: the chain stops at the first check.
	c := testCandidate()
	c.Episode.Downloaded = true
	c.Episode.Watched = true
	if status, _, _ := checkEligibility(c, rc); status != models.StatusAlreadyDownloaded {
		t.Errorf("chain order: got %d, want %d", status, models.StatusAlreadyDownloaded)
	}

	if _, _, terminal := checkEligibility(testCandidate(), rc); terminal {
		t.Error("clean candidate must pass the whole chain")
	}
}

func TestOnAirWindow(t *testing.T) {
	rc := testRunConfig()

	// Aired 2 hours ago with runtime 30 and delay 15: the 45 minute
	// window has long closed, the candidate proceeds.
	c := testCandidate()
	if status, _, terminal := checkOnAir(c, rc); terminal {
		t.Errorf("aired 2h+ ago must not be on air, got status %d", status)
	}

	// Aired 10 minutes ago: 35 minutes of the window remain.
	c.Episode.FirstAiredMs = rc.Now.Add(-10 * time.Minute).UnixMilli()
	status, detail, terminal := checkOnAir(c, rc)
	if !terminal || status != models.StatusOnAir {
		t.Fatalf("got status %d terminal=%v, want on-air", status, terminal)
	}
	if detail != "0h 35m" {
		t.Errorf("remaining = %q, want \"0h 35m\"", detail)
	}
}

func TestFormatRemainingWithDays(t *testing.T) {
	if got := formatRemaining(26*time.Hour + 5*time.Minute); got != "1d 2h 5m" {
		t.Errorf("formatRemaining = %q", got)
	}
}

func TestEffectiveDelayClampedToLookback(t *testing.T) {
	rc := testRunConfig() // lookback 2 days
	s := models.Show{}

	if got := effectiveDelayMinutes(s, rc); got != 15 {
		t.Errorf("default delay = %d, want 15", got)
	}

	huge := 10000
	s.CustomDelayMin = &huge
	if got := effectiveDelayMinutes(s, rc); got != 2*24*60 {
		t.Errorf("clamped delay = %d, want %d", got, 2*24*60)
	}
}

func TestBuildQuery(t *testing.T) {
	rc := testRunConfig()
	c := testCandidate()

	query, base := buildQuery(c, rc)
	if base != "some show S01E01" {
		t.Errorf("base = %q", base)
	}
	if query != "some show S01E01 720p" {
		t.Errorf("query = %q", query)
	}

	// Opting out of global quality drops the suffix.
	c.Show.UseGlobalQuality = false
	if query, _ := buildQuery(c, rc); query != "some show S01E01" {
		t.Errorf("query without quality = %q", query)
	}

	// AND-mode require keywords go into the query itself; OR mode
	// keeps them as a post-filter only.
	c.Show.UseGlobalQuality = true
	rc.RequireKeywords = []string{"x265"}
	if query, _ := buildQuery(c, rc); query != "some show S01E01 720p" {
		t.Errorf("OR mode must not append keywords, got %q", query)
	}
	rc.RequireAll = true
	if query, _ := buildQuery(c, rc); query != "some show S01E01 720p x265" {
		t.Errorf("AND mode query = %q", query)
	}
}

func TestScoreFilter(t *testing.T) {
	mc := matchContext{baseQuery: "big bang theory s01e01 1080p"}

	if ok := filterScore(search.SearchResult{Name: "The.Big.Bang.Theory.S01E01.1080p.Bluray"}, mc); !ok {
		t.Error("release containing every query token must pass")
	}
	if ok := filterScore(search.SearchResult{Name: "Big.Bang.Theory.S01E01.720p"}, mc); ok {
		t.Error("release missing the 1080p token must fail")
	}
}

// A global ignore keyword that collides with a token of the search
// query is still applied: such a release is filtered out, and the
// activity log is what surfaces the resulting no-match runs.
func TestIgnoreKeywordsNotSelfExcluded(t *testing.T) {
	c := testCandidate()
	rc := testRunConfig()
	rc.IgnoreKeywords = []string{"show"}

	mc := newMatchContext(c, "some show S01E01", rc)
	r := search.SearchResult{Name: "Some.Show.S01E01.720p", Seeders: 100}
	if ok, failed := matchResult(r, mc); ok || failed != "ignore-keywords" {
		t.Errorf("colliding ignore keyword must still veto the release, got ok=%v filter=%q", ok, failed)
	}
}

func TestRequireKeywordsModes(t *testing.T) {
	r := search.SearchResult{Name: "Some.Show.S01E01.720p.x265-GRP"}

	mc := matchContext{require: nil}
	if !filterRequire(r, mc) {
		t.Error("empty require list must pass")
	}

	mc = matchContext{require: []string{"x265", "bluray"}}
	if !filterRequire(r, mc) {
		t.Error("OR mode needs only one keyword present")
	}

	mc.requireAll = true
	if filterRequire(r, mc) {
		t.Error("AND mode needs every keyword present")
	}
	mc.require = []string{"x265", "720p"}
	if !filterRequire(r, mc) {
		t.Error("AND mode with all keywords present must pass")
	}
}

func TestSizeFilter(t *testing.T) {
	mc := matchContext{minBytes: 100e6, maxBytes: 2000e6}

	if !filterSize(search.SearchResult{Size: "unknown"}, mc) {
		t.Error("unknown size must pass unconditionally")
	}
	if !filterSize(search.SearchResult{Size: "500.00 MB"}, mc) {
		t.Error("size inside the window must pass")
	}
	if !filterSize(search.SearchResult{Size: "2000.00 MB"}, mc) {
		t.Error("window bounds are inclusive")
	}
	if filterSize(search.SearchResult{Size: "50.00 MB"}, mc) {
		t.Error("size below the minimum must fail")
	}
	if filterSize(search.SearchResult{Size: "3 GB"}, mc) {
		t.Error("size above the maximum must fail")
	}

	mc.maxBytes = 0
	if !filterSize(search.SearchResult{Size: "3 GB"}, mc) {
		t.Error("zero max means unbounded")
	}
}

func TestKeywordMerge(t *testing.T) {
	rc := testRunConfig()
	rc.IgnoreKeywords = []string{"CAM", "ts"}
	s := models.Show{ExcludeKeywords: "Hardcoded", UseGlobalExclude: true}

	got := ignoreKeywords(s, rc)
	want := []string{"hardcoded", "cam", "ts"}
	if len(got) != len(want) {
		t.Fatalf("merged = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("merged = %v, want %v", got, want)
		}
	}

	// Opting out of the global list keeps only the show's own keywords.
	s.UseGlobalExclude = false
	if got := ignoreKeywords(s, rc); len(got) != 1 || got[0] != "hardcoded" {
		t.Errorf("opt-out merged = %v", got)
	}
}
