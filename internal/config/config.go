package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port     int    `yaml:"port"`
		DataPath string `yaml:"data_path"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"app"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	// Client configures the active torrent client. Type selects the
	// protocol adapter; empty means the built-in stub.
	Client struct {
		Type         string `yaml:"type"`
		Host         string `yaml:"host"`
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		Secret       string `yaml:"secret"` // aria2 RPC token
		DownloadPath string `yaml:"download_path"`
		Label        string `yaml:"label"`
	} `yaml:"torrent_client"`

	Notifications struct {
		PushbulletAPIKey string `yaml:"pushbullet_api_key"`
	} `yaml:"notifications"`

	// Mirrors overrides the base URL of individual search engines,
	// keyed by engine name.
	Mirrors map[string]string `yaml:"mirrors"`

	Settings Settings `yaml:"settings"`

	mu   sync.RWMutex
	path string
}

// Settings is the mutable part of the configuration. It is re-read when
// the config file changes on disk, and snapshotted once per batch run.
type Settings struct {
	TorrentingEnabled bool     `yaml:"torrenting_enabled"`
	DefaultEngine     string   `yaml:"default_engine"`
	MinSeeders        int      `yaml:"min_seeders"`
	SearchQuality     string   `yaml:"search_quality"`
	LookbackDays      int      `yaml:"lookback_days"`
	DelayMinutes      int      `yaml:"delay_minutes"`
	ShowSpecials      bool     `yaml:"show_specials"`
	RequireKeywords   []string `yaml:"require_keywords"`
	RequireMode       string   `yaml:"require_keywords_mode"` // "and" or "or"
	IgnoreKeywords    []string `yaml:"ignore_keywords"`
	MinSizeMB         float64  `yaml:"min_size_mb"`
	MaxSizeMB         float64  `yaml:"max_size_mb"`
	BatchWorkers      int      `yaml:"batch_workers"`
	SearchIntervalMin int      `yaml:"search_interval_minutes"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{path: path}
	setDefaults(cfg)

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(cfg.App.DataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.App.Port = 8081
	cfg.App.DataPath = "./data"
	cfg.App.Debug = false

	cfg.Database.Path = "./data/episodarr.db"

	cfg.Client.Type = ""
	cfg.Client.DownloadPath = "/downloads/tv"
	cfg.Client.Label = "episodarr"

	cfg.Settings = Settings{
		TorrentingEnabled: true,
		DefaultEngine:     "thepiratebay",
		MinSeeders:        5,
		SearchQuality:     "720p",
		LookbackDays:      2,
		DelayMinutes:      15,
		ShowSpecials:      false,
		RequireMode:       "or",
		MinSizeMB:         0,
		MaxSizeMB:         4096,
		BatchWorkers:      4,
		SearchIntervalMin: 30,
	}
}

// CurrentSettings returns a copy of the settings section.
func (c *Config) CurrentSettings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.Settings
	s.RequireKeywords = append([]string(nil), c.Settings.RequireKeywords...)
	s.IgnoreKeywords = append([]string(nil), c.Settings.IgnoreKeywords...)
	return s
}

func (c *Config) reloadSettings() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	var fresh Config
	setDefaults(&fresh)
	if err := yaml.Unmarshal(data, &fresh); err != nil {
		return err
	}
	c.mu.Lock()
	c.Settings = fresh.Settings
	c.mu.Unlock()
	return nil
}

// Watch re-reads the settings section whenever the config file is written.
func (c *Config) Watch(logger *logrus.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	base := filepath.Base(c.path)
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := c.reloadSettings(); err != nil {
					logger.WithError(err).Warn("Failed to reload settings")
					continue
				}
				logger.Info("Settings reloaded from config file")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Warn("Config watcher error")
			}
		}
	}()
	return nil
}
