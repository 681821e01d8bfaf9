package torrent

import "strings"

// One Spec per supported client protocol. Adapters flatten their wire
// responses into the raw maps these tables read; anything a protocol
// cannot express stays at the Record default.

var qbittorrentSpec = Spec{
	Protocol:      "qbittorrent",
	NameField:     "name",
	IDField:       "hash",
	ProgressField: "progress",
	ProgressScale: 100, // API reports 0..1
	SpeedField:    "dlspeed",
	DirField:      "save_path",
	StateField:    "state",
	Started: stateIn("downloading", "metaDL", "stalledDL", "forcedDL", "queuedDL",
		"uploading", "stalledUP", "forcedUP", "queuedUP"),
}

var transmissionSpec = Spec{
	Protocol:      "transmission",
	NameField:     "name",
	IDField:       "hashString",
	ProgressField: "percentDone",
	ProgressScale: 100, // RPC reports 0..1
	SpeedField:    "rateDownload",
	DirField:      "downloadDir",
	StateField:    "status",
	Started:       stateNonZero, // 0 is TR_STATUS_STOPPED
	FilesField:    "files",
	FilesNameKey:  "name",
}

var delugeSpec = Spec{
	Protocol:      "deluge",
	NameField:     "name",
	IDField:       "hash",
	ProgressField: "progress",
	ProgressScale: 1, // daemon reports 0..100
	SpeedField:    "download_payload_rate",
	DirField:      "save_path",
	StateField:    "state",
	Started:       stateIn("Downloading", "Seeding", "Checking"),
	FilesField:    "files",
	FilesNameKey:  "path",
}

var aria2Spec = Spec{
	Protocol:   "aria2",
	NameField:  "name",
	IDField:    "gid",
	SpeedField: "downloadSpeed",
	DirField:   "dir",
	StateField: "status",
	Started:    stateIn("active", "waiting"),
	DeriveProgress: func(raw map[string]any) (float64, bool) {
		done, ok1 := toFloat(raw["completedLength"])
		total, ok2 := toFloat(raw["totalLength"])
		if !ok1 || !ok2 || total <= 0 {
			return 0, false
		}
		return done / total * 100, true
	},
	FilesField:   "files",
	FilesNameKey: "path",
}

var rtorrentSpec = Spec{
	Protocol:   "rtorrent",
	NameField:  "name",
	IDField:    "hash",
	SpeedField: "down_rate",
	DirField:   "directory",
	StateField: "state",
	Started:    stateNonZero,
	DeriveProgress: func(raw map[string]any) (float64, bool) {
		done, ok1 := toFloat(raw["bytes_done"])
		total, ok2 := toFloat(raw["size_bytes"])
		if !ok1 || !ok2 || total <= 0 {
			return 0, false
		}
		return done / total * 100, true
	},
}

var utorrentSpec = Spec{
	Protocol:      "utorrent",
	NameField:     "name",
	IDField:       "hash",
	ProgressField: "progress",
	ProgressScale: 0.1, // list reports permille
	SpeedField:    "download_speed",
	StateField:    "status",
	Started:       stateOdd, // started bit is the low bit of the status mask
	SyntheticFile: func(raw map[string]any) string {
		name, _ := toString(raw["name"])
		return name
	},
}

var vuzeSpec = Spec{
	Protocol:      "vuze",
	NameField:     "name",
	IDField:       "hashString",
	ProgressField: "percentDone",
	ProgressScale: 100, // xmwebui speaks the transmission dialect
	SpeedField:    "rateDownload",
	DirField:      "downloadDir",
	StateField:    "status",
	Started:       stateNonZero,
	FilesField:    "files",
	FilesNameKey:  "name",
}

var tixatiSpec = Spec{
	Protocol:      "tixati",
	NameField:     "name",
	IDField:       "guid",
	ProgressField: "progress",
	ProgressScale: 1,
	SpeedField:    "speed", // human string, e.g. "500 KiB/s"
	StateField:    "status",
	Started:       stateNotContains("offline"),
	SyntheticFile: func(raw map[string]any) string {
		name, _ := toString(raw["name"])
		size, _ := toString(raw["size"])
		if size != "" {
			return name + " (" + size + ")"
		}
		return name
	},
}

var floodSpec = Spec{
	Protocol:      "flood",
	NameField:     "name",
	IDField:       "hash",
	ProgressField: "percentComplete",
	ProgressScale: 1,
	SpeedField:    "downRate",
	DirField:      "directory",
	StateField:    "status",
	Started:       stateArrayHas("downloading", "seeding"),
}

var synologySpec = Spec{
	Protocol:   "synology",
	NameField:  "title",
	IDField:    "id",
	SpeedField: "speed_download",
	DirField:   "destination",
	StateField: "status",
	Started:    stateIn("downloading", "seeding", "finishing", "waiting"),
	DeriveProgress: func(raw map[string]any) (float64, bool) {
		done, ok1 := toFloat(raw["size_downloaded"])
		total, ok2 := toFloat(raw["size"])
		if !ok1 || !ok2 || total <= 0 {
			return 0, false
		}
		return done / total * 100, true
	},
	SyntheticFile: func(raw map[string]any) string {
		name, _ := toString(raw["title"])
		return name
	},
}

var ktorrentSpec = Spec{
	Protocol:      "ktorrent",
	NameField:     "name",
	IDField:       "info_hash",
	ProgressField: "percentage",
	ProgressScale: 1,
	SpeedField:    "download_rate", // human string
	StateField:    "status",
	Started:       stateNotContains("stopped"),
	SyntheticFile: func(raw map[string]any) string {
		name, _ := toString(raw["name"])
		return name
	},
}

// stubSpec backs the no-client configuration: everything it reports is
// complete and idle, so manually launched torrents still get marked as
// downloaded by the poll loop.
var stubSpec = Spec{
	Protocol:       "stub",
	NameField:      "name",
	IDField:        "id",
	AlwaysComplete: true,
}

// Specs lists every protocol adapter table, stub included.
var Specs = []Spec{
	qbittorrentSpec, transmissionSpec, delugeSpec, aria2Spec,
	rtorrentSpec, utorrentSpec, vuzeSpec, tixatiSpec,
	floodSpec, synologySpec, ktorrentSpec, stubSpec,
}

// stateArrayHas matches protocols that report status as a list of tags.
func stateArrayHas(active ...string) func(any) bool {
	set := make(map[string]bool, len(active))
	for _, s := range active {
		set[strings.ToLower(s)] = true
	}
	return func(v any) bool {
		list, ok := v.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if s, ok := toString(item); ok && set[strings.ToLower(s)] {
				return true
			}
		}
		return false
	}
}
