package core

import (
	"fmt"
	"strings"
	"time"

	"episodarr/internal/clients/search"
	"episodarr/internal/database/models"
)

// The eligibility chain decides, per candidate, whether a search should
// happen at all. Checks run in order; the first terminal outcome wins
// and processing stops for that candidate.

type eligibilityCheck func(c models.Candidate, rc RunConfig) (models.ActivityStatus, string, bool)

var eligibilityChain = []eligibilityCheck{
	checkAlreadyDownloaded,
	checkAlreadyWatched,
	checkHasDownload,
	checkPolicy,
	checkOnAir,
	checkSearchName,
}

// checkEligibility returns the terminal status for a candidate, or
// ok=false when every check passed and the search should proceed.
func checkEligibility(c models.Candidate, rc RunConfig) (models.ActivityStatus, string, bool) {
	for _, check := range eligibilityChain {
		if status, detail, terminal := check(c, rc); terminal {
			return status, detail, true
		}
	}
	return 0, "", false
}

func checkAlreadyDownloaded(c models.Candidate, _ RunConfig) (models.ActivityStatus, string, bool) {
	if c.Episode.Downloaded {
		return models.StatusAlreadyDownloaded, "", true
	}
	return 0, "", false
}

func checkAlreadyWatched(c models.Candidate, _ RunConfig) (models.ActivityStatus, string, bool) {
	if c.Episode.Watched {
		return models.StatusAlreadyWatched, "", true
	}
	return 0, "", false
}

func checkHasDownload(c models.Candidate, _ RunConfig) (models.ActivityStatus, string, bool) {
	if c.Episode.DownloadID != nil && *c.Episode.DownloadID != "" {
		return models.StatusHasDownload, *c.Episode.DownloadID, true
	}
	return 0, "", false
}

func checkPolicy(c models.Candidate, rc RunConfig) (models.ActivityStatus, string, bool) {
	if c.Episode.IsSpecial() && !specialsVisible(c.Show, rc) {
		return models.StatusIneligible, "specials hidden", true
	}
	if c.Show.Hidden {
		return models.StatusIneligible, "show hidden from calendar", true
	}
	if !c.Show.AutoDownload {
		return models.StatusIneligible, "auto-download disabled", true
	}
	return 0, "", false
}

func checkOnAir(c models.Candidate, rc RunConfig) (models.ActivityStatus, string, bool) {
	delay := effectiveDelayMinutes(c.Show, rc)
	endMs := c.Episode.FirstAiredMs + int64(c.Show.RuntimeMinutes+delay)*60_000
	if endMs > rc.Now.UnixMilli() {
		remaining := time.Duration(endMs-rc.Now.UnixMilli()) * time.Millisecond
		return models.StatusOnAir, formatRemaining(remaining), true
	}
	return 0, "", false
}

func checkSearchName(c models.Candidate, _ RunConfig) (models.ActivityStatus, string, bool) {
	if strings.TrimSpace(c.Show.SearchName) == "" {
		return models.StatusNoSearchName, "", true
	}
	return 0, "", false
}

func specialsVisible(s models.Show, rc RunConfig) bool {
	if s.ShowSpecials != nil {
		return *s.ShowSpecials
	}
	return rc.ShowSpecials
}

// effectiveDelayMinutes clamps the post-air delay to the lookback
// window, so a misconfigured multi-day custom delay cannot silently
// starve every candidate.
func effectiveDelayMinutes(s models.Show, rc RunConfig) int {
	delay := rc.DelayMinutes
	if s.CustomDelayMin != nil {
		delay = *s.CustomDelayMin
	}
	if max := rc.LookbackDays * 24 * 60; delay > max {
		delay = max
	}
	return delay
}

// formatRemaining renders the time until the on-air window closes.
// Days are omitted when zero, hours are always shown.
func formatRemaining(d time.Duration) string {
	minutes := int(d.Minutes())
	days := minutes / (24 * 60)
	hours := (minutes % (24 * 60)) / 60
	mins := minutes % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}

func effectiveMinSeeders(s models.Show, rc RunConfig) int {
	if s.CustomMinSeeders != nil {
		return *s.CustomMinSeeders
	}
	return rc.MinSeeders
}

// buildQuery constructs the indexer query and the base string the score
// filter runs against. The quality suffix and, in AND mode, the
// require-keywords go into the query so the indexer itself narrows the
// results; the base stays name plus episode code only.
func buildQuery(c models.Candidate, rc RunConfig) (query, base string) {
	base = c.Show.SearchName + " " + c.Episode.Code()
	query = base
	if c.Show.UseGlobalQuality && rc.Quality != "" {
		query += " " + rc.Quality
	}
	if rc.RequireAll {
		if req := strings.Join(requireKeywords(c.Show, rc), " "); req != "" {
			query += " " + req
		}
	}
	return query, base
}

// ignoreKeywords merges the show's exclude list with the global one
// unless the show opts out of the global list. No token is excluded for
// colliding with the search query itself; a global ignore keyword that
// matches a query token will veto every result, and the activity log is
// the place that makes that visible.
func ignoreKeywords(s models.Show, rc RunConfig) []string {
	joined := s.ExcludeKeywords
	if s.UseGlobalExclude {
		joined += " " + strings.Join(rc.IgnoreKeywords, " ")
	}
	return strings.Fields(strings.ToLower(joined))
}

func requireKeywords(s models.Show, rc RunConfig) []string {
	joined := s.IncludeKeywords
	if s.UseGlobalInclude {
		joined += " " + strings.Join(rc.RequireKeywords, " ")
	}
	return strings.Fields(strings.ToLower(joined))
}

// matchContext carries everything the result filter chain needs for one
// candidate, resolved once before the results are walked.
type matchContext struct {
	baseQuery  string
	minSeeders int
	ignore     []string
	require    []string
	requireAll bool
	minBytes   int64
	maxBytes   int64
}

func newMatchContext(c models.Candidate, base string, rc RunConfig) matchContext {
	return matchContext{
		baseQuery:  strings.ToLower(base),
		minSeeders: effectiveMinSeeders(c.Show, rc),
		ignore:     ignoreKeywords(c.Show, rc),
		require:    requireKeywords(c.Show, rc),
		requireAll: rc.RequireAll,
		minBytes:   rc.MinSizeBytes,
		maxBytes:   rc.MaxSizeBytes,
	}
}

// The result filter chain, in fixed order. A result is acceptable when
// every filter passes.

type resultFilter struct {
	name string
	pass func(r search.SearchResult, mc matchContext) bool
}

var resultFilters = []resultFilter{
	{"seeders", filterSeeders},
	{"score", filterScore},
	{"ignore-keywords", filterIgnore},
	{"require-keywords", filterRequire},
	{"size", filterSize},
}

// matchResult reports whether a result passes the whole chain; on
// rejection it names the failing filter.
func matchResult(r search.SearchResult, mc matchContext) (bool, string) {
	for _, f := range resultFilters {
		if !f.pass(r, mc) {
			return false, f.name
		}
	}
	return true, ""
}

func filterSeeders(r search.SearchResult, mc matchContext) bool {
	return r.Seeders >= mc.minSeeders
}

// filterScore requires every whitespace token of the base query to
// appear as a substring of the release name.
func filterScore(r search.SearchResult, mc matchContext) bool {
	name := strings.ToLower(r.Name)
	for _, token := range strings.Fields(mc.baseQuery) {
		if !strings.Contains(name, token) {
			return false
		}
	}
	return true
}

func filterIgnore(r search.SearchResult, mc matchContext) bool {
	name := strings.ToLower(r.Name)
	for _, kw := range mc.ignore {
		if strings.Contains(name, kw) {
			return false
		}
	}
	return true
}

func filterRequire(r search.SearchResult, mc matchContext) bool {
	if len(mc.require) == 0 {
		return true
	}
	name := strings.ToLower(r.Name)
	if mc.requireAll {
		for _, kw := range mc.require {
			if !strings.Contains(name, kw) {
				return false
			}
		}
		return true
	}
	for _, kw := range mc.require {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// filterSize checks the parsed byte size against the configured window.
// Unknown or zero sizes pass unconditionally; a zero max means
// unbounded.
func filterSize(r search.SearchResult, mc matchContext) bool {
	bytes, ok := search.SizeBytes(r.Size)
	if !ok || bytes == 0 {
		return true
	}
	if bytes < mc.minBytes {
		return false
	}
	if mc.maxBytes > 0 && bytes > mc.maxBytes {
		return false
	}
	return true
}
