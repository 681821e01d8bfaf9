package core

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"episodarr/internal/clients/notifications"
	"episodarr/internal/clients/search"
	"episodarr/internal/clients/torrent"
	"episodarr/internal/config"
	"episodarr/internal/database/models"
)

// Manager owns the long-lived pieces: repositories, the search and
// client registries, the decision engine and the scheduler.
type Manager struct {
	config     *config.Config
	episodes   *models.EpisodeRepository
	activities *models.ActivityRepository
	engines    *search.Registry
	clients    *torrent.Registry
	notifier   notifications.Notifier
	decision   *DecisionEngine
	logger     *logrus.Logger
	scheduler  *cron.Cron
}

func NewManager(cfg *config.Config, db *sql.DB, logger *logrus.Logger) *Manager {
	m := &Manager{
		config:     cfg,
		episodes:   models.NewEpisodeRepository(db),
		activities: models.NewActivityRepository(db),
		logger:     logger,
		scheduler:  cron.New(),
	}

	settings := cfg.CurrentSettings()
	m.engines = search.NewRegistry(cfg.Mirrors, settings.DefaultEngine, logger)
	m.clients = torrent.NewRegistry(torrent.Options{
		Type:     cfg.Client.Type,
		Host:     cfg.Client.Host,
		Username: cfg.Client.Username,
		Password: cfg.Client.Password,
		Secret:   cfg.Client.Secret,
	})

	m.notifier = notifications.NopNotifier{}
	if key := cfg.Notifications.PushbulletAPIKey; key != "" {
		m.notifier = notifications.NewPushbulletClient(key, logger)
	}

	m.decision = NewDecisionEngine(cfg, m.episodes, m.activities, m.engines, m.clients, m.notifier, logger)
	return m
}

// StartScheduler begins the periodic auto-download runs and the
// download status poll.
func (m *Manager) StartScheduler() {
	interval := m.config.CurrentSettings().SearchIntervalMin
	if interval < 1 {
		interval = 30
	}
	if _, err := m.scheduler.AddFunc(fmt.Sprintf("@every %dm", interval), func() {
		if _, err := m.decision.RunBatch(context.Background(), false); err != nil {
			m.logger.WithError(err).Error("Scheduled auto-download run failed")
		}
	}); err != nil {
		m.logger.WithError(err).Fatal("Failed to schedule auto-download runs")
	}
	if _, err := m.scheduler.AddFunc("@every 1m", m.updateDownloadStatus); err != nil {
		m.logger.WithError(err).Fatal("Failed to schedule download status poll")
	}
	m.scheduler.Start()
	m.logger.WithField("interval_minutes", interval).Info("Scheduler started")
}

func (m *Manager) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}

// RunNow triggers one batch immediately, for the API and for manual
// testing. Idempotent; a run already in flight is skipped. force runs
// the batch even while torrenting is disabled in settings.
func (m *Manager) RunNow(ctx context.Context, force bool) (RunSummary, error) {
	return m.decision.RunBatch(ctx, force)
}

// Torrents returns the active client's normalized torrent list.
func (m *Manager) Torrents() ([]torrent.Record, error) {
	client, err := m.clients.Active()
	if err != nil {
		return nil, err
	}
	return client.List()
}

// EngineNames lists the registered search engines.
func (m *Manager) EngineNames() []string {
	return m.engines.Names()
}

// RecentActivity exposes the newest auto-download log rows.
func (m *Manager) RecentActivity(limit int) ([]models.Activity, error) {
	return m.activities.Recent(limit)
}

// Client lifecycle passthrough for the UI layer.

func (m *Manager) StartTorrent(id string) error {
	return m.clientOp(func(c torrent.Client) error { return c.Start(id) })
}
func (m *Manager) StopTorrent(id string) error {
	return m.clientOp(func(c torrent.Client) error { return c.Stop(id) })
}
func (m *Manager) PauseTorrent(id string) error {
	return m.clientOp(func(c torrent.Client) error { return c.Pause(id) })
}
func (m *Manager) RemoveTorrent(id string) error {
	return m.clientOp(func(c torrent.Client) error { return c.Remove(id) })
}

func (m *Manager) TorrentFiles(id string) ([]string, error) {
	client, err := m.clients.Active()
	if err != nil {
		return nil, err
	}
	return client.Files(id)
}

func (m *Manager) clientOp(op func(torrent.Client) error) error {
	client, err := m.clients.Active()
	if err != nil {
		return err
	}
	return op(client)
}

// TestClientConnection pings the active client.
func (m *Manager) TestClientConnection() bool {
	client, err := m.clients.Active()
	if err != nil {
		return false
	}
	return client.Ping() == nil
}

// updateDownloadStatus flips in-flight episodes to downloaded when the
// client reports their torrent complete.
func (m *Manager) updateDownloadStatus() {
	pending, err := m.episodes.WithDownloadID()
	if err != nil {
		m.logger.WithError(err).Error("Failed to load in-flight episodes")
		return
	}
	if len(pending) == 0 {
		return
	}

	client, err := m.clients.Active()
	if err != nil {
		m.logger.WithError(err).Error("No active torrent client")
		return
	}
	records, err := client.List()
	if err != nil {
		m.logger.WithError(err).Warn("Failed to list torrents")
		return
	}

	byID := make(map[string]torrent.Record, len(records))
	for _, r := range records {
		byID[r.Identifier] = r
	}

	for _, ep := range pending {
		rec, ok := byID[*ep.DownloadID]
		if !ok || !rec.Downloaded() {
			continue
		}
		if err := m.episodes.MarkDownloaded(ep.ID); err != nil {
			m.logger.WithError(err).Error("Failed to mark episode downloaded")
			continue
		}
		m.logger.WithFields(logrus.Fields{
			"episode": ep.Code(),
			"torrent": rec.DisplayName,
		}).Info("Download complete")
		m.notifier.NotifyDownloadComplete(models.Candidate{Episode: ep}, rec.DisplayName)
	}
}
