package torrent

import "testing"

func TestFloorProgressNeverOverreports(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{-3, 0},
		{42.35, 42.3},
		{99.9, 99.9},
		{99.96, 99.9}, // floor, not round-to-nearest
		{99.99999, 99.9},
		{100, 100},
		{100.05, 100},
	}
	for _, c := range cases {
		if got := floorProgress(c.in); got != c.want {
			t.Errorf("floorProgress(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

// Every spec must produce a fully defaulted record from an empty raw
// map: no panic, empty name, zero progress, not started, nil directory.
func TestSpecsDegradeFromEmptyResponse(t *testing.T) {
	for _, spec := range Specs {
		rec := spec.BuildRecord(map[string]any{})
		if rec.Protocol != spec.Protocol {
			t.Errorf("%s: protocol not stamped", spec.Protocol)
		}
		if rec.DisplayName != "" {
			t.Errorf("%s: expected empty name, got %q", spec.Protocol, rec.DisplayName)
		}
		if rec.IsStarted {
			t.Errorf("%s: expected not started", spec.Protocol)
		}
		if rec.DownloadDirectory != nil {
			t.Errorf("%s: expected nil directory", spec.Protocol)
		}
		if spec.AlwaysComplete {
			if rec.ProgressPercent != 100 {
				t.Errorf("%s: stub must report 100, got %v", spec.Protocol, rec.ProgressPercent)
			}
		} else if rec.ProgressPercent != 0 {
			t.Errorf("%s: expected zero progress, got %v", spec.Protocol, rec.ProgressPercent)
		}
	}
}

func TestParseSpeed(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{float64(12345), 12345},
		{"500", 500}, // unmarked numbers are bytes/sec as-is
		{"500 KiB/s", 512000},
		{"1.5 MiB/s", 1572864},
		{"2 GiB/s", 2147483648},
		{"garbage", 0},
		{nil, 0},
		{float64(-5), 0},
	}
	for _, c := range cases {
		if got := parseSpeed(c.in); got != c.want {
			t.Errorf("parseSpeed(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestStartedPredicates(t *testing.T) {
	if !qbittorrentSpec.Started("downloading") {
		t.Error("qbittorrent downloading should count as started")
	}
	if qbittorrentSpec.Started("pausedDL") {
		t.Error("qbittorrent pausedDL should not count as started")
	}

	// uTorrent's low status bit is the started flag.
	if !utorrentSpec.Started(float64(201)) {
		t.Error("utorrent odd status should count as started")
	}
	if utorrentSpec.Started(float64(200)) {
		t.Error("utorrent even status should not count as started")
	}

	if !transmissionSpec.Started(float64(4)) {
		t.Error("transmission non-zero status should count as started")
	}
	if transmissionSpec.Started(float64(0)) {
		t.Error("transmission zero status should not count as started")
	}

	if !tixatiSpec.Started("Downloading 4 peers") {
		t.Error("tixati active status should count as started")
	}
	if tixatiSpec.Started("Offline") {
		t.Error("tixati offline status should not count as started")
	}

	if !floodSpec.Started([]any{"downloading", "active"}) {
		t.Error("flood downloading tag should count as started")
	}
	if floodSpec.Started([]any{"stopped"}) {
		t.Error("flood stopped tag should not count as started")
	}
}

func TestBuildRecordCoercesAndScales(t *testing.T) {
	rec := qbittorrentSpec.BuildRecord(map[string]any{
		"name":      "Some.Show.S01E01.720p",
		"hash":      "dd8255ecdc7ca55fb0bbf81323d87062db1f6d1c",
		"progress":  0.9996,
		"dlspeed":   float64(2048),
		"save_path": "/downloads/tv",
		"state":     "downloading",
		"junk":      "ignored", // unknown keys are dropped silently
	})
	if rec.ProgressPercent != 99.9 {
		t.Errorf("progress = %v, want 99.9", rec.ProgressPercent)
	}
	if rec.DownloadSpeedBps != 2048 {
		t.Errorf("speed = %d, want 2048", rec.DownloadSpeedBps)
	}
	if rec.DownloadDirectory == nil || *rec.DownloadDirectory != "/downloads/tv" {
		t.Errorf("directory = %v", rec.DownloadDirectory)
	}
	if !rec.IsStarted {
		t.Error("expected started")
	}
	if rec.Downloaded() {
		t.Error("99.96%% must not be reported as downloaded")
	}
}

func TestDerivedProgress(t *testing.T) {
	rec := aria2Spec.BuildRecord(map[string]any{
		"gid":             "2089b05ecca3d829",
		"completedLength": "524288",
		"totalLength":     "1048576",
		"status":          "active",
	})
	if rec.ProgressPercent != 50 {
		t.Errorf("progress = %v, want 50", rec.ProgressPercent)
	}
	if !rec.IsStarted {
		t.Error("active aria2 download should be started")
	}
}

func TestSyntheticFileListing(t *testing.T) {
	rec := tixatiSpec.BuildRecord(map[string]any{
		"name": "Some.Show.S01E01",
		"size": "1.4 GB",
	})
	if len(rec.Files) != 1 || rec.Files[0] != "Some.Show.S01E01 (1.4 GB)" {
		t.Errorf("files = %v", rec.Files)
	}
}
