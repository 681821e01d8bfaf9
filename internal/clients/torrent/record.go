package torrent

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Record is the normalized snapshot of one torrent, rebuilt on every
// poll from the client's raw response. One Record type serves every
// protocol; the per-protocol differences live in Spec.
type Record struct {
	DisplayName       string   `json:"display_name"`
	Identifier        string   `json:"identifier"`
	ProgressPercent   float64  `json:"progress_percent"`
	DownloadSpeedBps  int64    `json:"download_speed_bps"`
	IsStarted         bool     `json:"is_started"`
	DownloadDirectory *string  `json:"download_directory,omitempty"`
	Files             []string `json:"files"`
	Protocol          string   `json:"protocol"`
}

// Downloaded reports whether the torrent has finished. ProgressPercent
// is floor-rounded, so 99.96% stays 99.9 and never trips this early.
func (r Record) Downloaded() bool {
	return r.ProgressPercent == 100
}

// Spec is the adapter table for one client protocol: which raw response
// keys feed which Record fields, how progress is scaled, and how the
// protocol expresses "started". Keys not named in a Spec are ignored,
// which shields the Record from protocol response drift.
type Spec struct {
	Protocol string

	NameField string
	IDField   string

	// ProgressField times ProgressScale yields percent. When the
	// protocol has no single progress field, DeriveProgress computes it
	// from the raw map instead (e.g. completed/total byte counters).
	ProgressField  string
	ProgressScale  float64
	DeriveProgress func(raw map[string]any) (float64, bool)

	// SpeedField may hold a number (bytes/sec) or a human string like
	// "500 KiB/s"; both are accepted.
	SpeedField string

	// DirField empty means the protocol cannot report a download path;
	// the Record keeps a nil directory.
	DirField string

	StateField string
	Started    func(state any) bool

	// FilesField empty means the protocol gives no per-file listing;
	// List synthesizes a one-entry placeholder from SyntheticFile.
	FilesField    string
	FilesNameKey  string
	SyntheticFile func(raw map[string]any) string

	// AlwaysComplete marks the stub protocol: progress pinned to 100,
	// never started, so mark-as-downloaded logic still works when no
	// real client is configured.
	AlwaysComplete bool
}

// BuildRecord normalizes one raw client response entry. Every contract
// field gets a value: missing or unconvertible source values leave the
// field at its safe default rather than producing an error.
func (s Spec) BuildRecord(raw map[string]any) Record {
	rec := Record{Protocol: s.Protocol}

	if s.NameField != "" {
		rec.DisplayName, _ = toString(raw[s.NameField])
	}
	if s.IDField != "" {
		rec.Identifier, _ = toString(raw[s.IDField])
	}

	if s.AlwaysComplete {
		rec.ProgressPercent = 100
		rec.IsStarted = false
		return rec
	}

	if s.DeriveProgress != nil {
		if p, ok := s.DeriveProgress(raw); ok {
			rec.ProgressPercent = floorProgress(p)
		}
	} else if s.ProgressField != "" {
		if p, ok := toFloat(raw[s.ProgressField]); ok {
			rec.ProgressPercent = floorProgress(p * s.ProgressScale)
		}
	}

	if s.SpeedField != "" {
		rec.DownloadSpeedBps = parseSpeed(raw[s.SpeedField])
	}

	if s.DirField != "" {
		if dir, ok := toString(raw[s.DirField]); ok && dir != "" {
			rec.DownloadDirectory = &dir
		}
	}

	if s.Started != nil && s.StateField != "" {
		rec.IsStarted = s.Started(raw[s.StateField])
	}

	if s.FilesField != "" {
		rec.Files = extractFiles(raw[s.FilesField], s.FilesNameKey)
	}
	if len(rec.Files) == 0 && s.SyntheticFile != nil {
		if name := s.SyntheticFile(raw); name != "" {
			rec.Files = []string{name}
		}
	}

	return rec
}

// floorProgress clamps to [0,100] and floor-rounds to one decimal.
// Floor, not round-to-nearest: a torrent at 99.96% must report 99.9,
// never 100.0.
func floorProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p >= 100 {
		return 100
	}
	return math.Floor(p*10) / 10
}

var speedRe = regexp.MustCompile(`(?i)^\s*([\d.,]+)\s*(KiB|MiB|GiB|KB|MB|GB|B)?(?:/s)?\s*$`)

// parseSpeed accepts either a numeric bytes/sec value or a human string
// like "500 KiB/s". Unmarked numbers are taken as bytes/sec as-is.
func parseSpeed(v any) int64 {
	if n, ok := toFloat(v); ok {
		if n < 0 {
			return 0
		}
		return int64(n)
	}
	s, ok := toString(v)
	if !ok {
		return 0
	}
	m := speedRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || n < 0 {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "kib", "kb":
		n *= 1024
	case "mib", "mb":
		n *= 1024 * 1024
	case "gib", "gb":
		n *= 1024 * 1024 * 1024
	}
	return int64(n)
}

func extractFiles(v any, nameKey string) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var files []string
	for _, item := range list {
		switch f := item.(type) {
		case string:
			files = append(files, f)
		case map[string]any:
			if name, ok := toString(f[nameKey]); ok && name != "" {
				files = append(files, name)
			}
		}
	}
	return files
}

// Coercions mirror JSON decoding quirks: numbers arrive as float64,
// some protocols send numerics as strings, booleans as 0/1.

func toString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func toInt(v any) (int64, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Predicate builders for the started check. The variety mirrors the
// protocols: state-enum membership, odd status code, non-zero code, and
// substring absence.

func stateIn(active ...string) func(any) bool {
	set := make(map[string]bool, len(active))
	for _, s := range active {
		set[strings.ToLower(s)] = true
	}
	return func(v any) bool {
		s, ok := toString(v)
		if !ok {
			return false
		}
		return set[strings.ToLower(s)]
	}
}

func stateOdd(v any) bool {
	n, ok := toInt(v)
	return ok && n%2 == 1
}

func stateNonZero(v any) bool {
	n, ok := toInt(v)
	return ok && n != 0
}

func stateNotContains(substr string) func(any) bool {
	substr = strings.ToLower(substr)
	return func(v any) bool {
		s, ok := toString(v)
		if !ok {
			return false
		}
		return !strings.Contains(strings.ToLower(s), substr)
	}
}
