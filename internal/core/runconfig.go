package core

import (
	"time"

	"episodarr/internal/config"
)

// RunConfig is the settings snapshot one batch run operates on. It is
// resolved once at the start of a run and never mutated, so the filter
// chain stays pure even if the config file is rewritten mid-run.
type RunConfig struct {
	TorrentingEnabled bool
	EngineName        string
	MinSeeders        int
	Quality           string
	LookbackDays      int
	DelayMinutes      int
	ShowSpecials      bool
	RequireKeywords   []string
	RequireAll        bool
	IgnoreKeywords    []string
	MinSizeBytes      int64
	MaxSizeBytes      int64
	Workers           int
	DownloadDir       string
	Label             string
	Now               time.Time
}

// ResolveRunConfig snapshots the live settings into a RunConfig.
func ResolveRunConfig(cfg *config.Config, now time.Time) RunConfig {
	s := cfg.CurrentSettings()

	workers := s.BatchWorkers
	if workers < 1 {
		workers = 1
	}
	lookback := s.LookbackDays
	if lookback < 1 {
		lookback = 1
	}

	return RunConfig{
		TorrentingEnabled: s.TorrentingEnabled,
		EngineName:        s.DefaultEngine,
		MinSeeders:        s.MinSeeders,
		Quality:           s.SearchQuality,
		LookbackDays:      lookback,
		DelayMinutes:      s.DelayMinutes,
		ShowSpecials:      s.ShowSpecials,
		RequireKeywords:   s.RequireKeywords,
		RequireAll:        s.RequireMode == "and",
		IgnoreKeywords:    s.IgnoreKeywords,
		MinSizeBytes:      int64(s.MinSizeMB * 1e6),
		MaxSizeBytes:      int64(s.MaxSizeMB * 1e6),
		Workers:           workers,
		DownloadDir:       cfg.Client.DownloadPath,
		Label:             cfg.Client.Label,
		Now:               now,
	}
}
