package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"episodarr/internal/clients/notifications"
	"episodarr/internal/clients/search"
	"episodarr/internal/clients/torrent"
	"episodarr/internal/config"
	"episodarr/internal/database/models"
	"episodarr/internal/utils"
)

// EpisodeStore is the slice of the database layer the decision engine
// consumes.
type EpisodeStore interface {
	AiringBetween(from, to time.Time) ([]models.Candidate, error)
	SetDownloadID(episodeID int, downloadID string) error
	MarkDownloaded(episodeID int) error
	WithDownloadID() ([]models.Episode, error)
}

// ActivityLog records one row per processed candidate per run.
type ActivityLog interface {
	Append(a *models.Activity) error
}

// EngineResolver yields search engines by name; satisfied by
// search.Registry.
type EngineResolver interface {
	Get(name string) (search.Searcher, error)
	Default() search.Searcher
}

// ClientSource yields the active torrent client; satisfied by
// torrent.Registry.
type ClientSource interface {
	Active() (torrent.Client, error)
}

// DecisionEngine runs the scheduled auto-download batches: pull
// candidates, filter, search, match, hand the winner to the client, and
// log every outcome.
type DecisionEngine struct {
	cfg      *config.Config
	episodes EpisodeStore
	activity ActivityLog
	engines  EngineResolver
	clients  ClientSource
	notifier notifications.Notifier
	logger   *logrus.Logger

	mu      sync.Mutex
	running bool
}

func NewDecisionEngine(cfg *config.Config, episodes EpisodeStore, activity ActivityLog,
	engines EngineResolver, clients ClientSource, notifier notifications.Notifier,
	logger *logrus.Logger) *DecisionEngine {
	if notifier == nil {
		notifier = notifications.NopNotifier{}
	}
	return &DecisionEngine{
		cfg:      cfg,
		episodes: episodes,
		activity: activity,
		engines:  engines,
		clients:  clients,
		notifier: notifier,
		logger:   logger,
	}
}

// RunSummary reports what one batch run did.
type RunSummary struct {
	RunID   string `json:"run_id"`
	Grabbed int    `json:"grabbed"`
	Skipped int    `json:"skipped"`
	Errors  int    `json:"errors"`
}

// RunBatch executes one auto-download pass. Safe to call repeatedly:
// a run already in flight is skipped, and re-running is idempotent
// because downloaded and in-flight episodes terminate at the top of the
// eligibility chain. force runs the batch even while torrenting is
// disabled in settings, for operator-triggered runs.
func (d *DecisionEngine) RunBatch(ctx context.Context, force bool) (RunSummary, error) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		d.logger.Debug("Auto-download run already in progress, skipping")
		return RunSummary{}, nil
	}
	d.running = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	rc := ResolveRunConfig(d.cfg, time.Now())
	summary := RunSummary{RunID: uuid.NewString()}

	if !rc.TorrentingEnabled && !force {
		d.logger.Info("Torrenting disabled, skipping auto-download run")
		return summary, nil
	}

	from := rc.Now.AddDate(0, 0, -rc.LookbackDays)
	candidates, err := d.episodes.AiringBetween(from, rc.Now)
	if err != nil {
		return summary, fmt.Errorf("failed to load candidates: %w", err)
	}

	d.logger.WithFields(logrus.Fields{
		"run_id":     summary.RunID,
		"candidates": len(candidates),
		"workers":    rc.Workers,
	}).Info("Auto-download run started")

	// Candidates are sharded by show so two episodes of the same show
	// are never raced past each other; each shard is processed in air
	// order by a single worker.
	shards := make([][]models.Candidate, rc.Workers)
	for _, c := range candidates {
		i := c.Show.ID % rc.Workers
		shards[i] = append(shards[i], c)
	}

	var (
		wg      sync.WaitGroup
		tallyMu sync.Mutex
	)
	for _, shard := range shards {
		if len(shard) == 0 {
			continue
		}
		wg.Add(1)
		go func(shard []models.Candidate) {
			defer wg.Done()
			for _, c := range shard {
				if ctx.Err() != nil {
					return
				}
				status, err := d.processCandidate(ctx, summary.RunID, c, rc)
				tallyMu.Lock()
				switch {
				case err != nil:
					summary.Errors++
				case status == models.StatusGrabbed:
					summary.Grabbed++
				default:
					summary.Skipped++
				}
				tallyMu.Unlock()
			}
		}(shard)
	}
	wg.Wait()

	d.logger.WithFields(logrus.Fields{
		"run_id":  summary.RunID,
		"grabbed": summary.Grabbed,
		"skipped": summary.Skipped,
		"errors":  summary.Errors,
	}).Info("Auto-download run finished")
	d.notifier.NotifyRunFinished(summary.Grabbed, summary.Skipped)

	return summary, nil
}

// processCandidate walks one candidate through eligibility, search,
// matching and the client hand-off. Every outcome lands in the activity
// log; only persistence failures return an error.
func (d *DecisionEngine) processCandidate(ctx context.Context, runID string, c models.Candidate, rc RunConfig) (models.ActivityStatus, error) {
	if status, detail, terminal := checkEligibility(c, rc); terminal {
		return status, d.logOutcome(runID, c, "", status, detail)
	}

	query, base := buildQuery(c, rc)

	engineName := rc.EngineName
	if c.Show.CustomEngine != nil && *c.Show.CustomEngine != "" {
		engineName = *c.Show.CustomEngine
	}
	engine, err := d.engines.Get(engineName)
	if err != nil {
		return models.StatusNoResults, d.logOutcome(runID, c, query, models.StatusNoResults, err.Error())
	}

	results, err := engine.Search(ctx, query, nil)
	if err != nil {
		// One engine outage must never abort the run.
		d.logger.WithError(err).WithField("engine", engine.Name()).Warn("Search failed")
		return models.StatusNoResults, d.logOutcome(runID, c, query, models.StatusNoResults, err.Error())
	}
	if len(results) == 0 {
		return models.StatusNoResults, d.logOutcome(runID, c, query, models.StatusNoResults, "")
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Seeders > results[j].Seeders })

	mc := newMatchContext(c, base, rc)
	for _, r := range results {
		ok, failed := matchResult(r, mc)
		if !ok {
			d.logger.WithFields(logrus.Fields{
				"release": r.Name,
				"filter":  failed,
			}).Debug("Result rejected")
			continue
		}

		magnet := r.MagnetURI
		if magnet == "" && r.DetailURL != "" {
			details, err := engine.Details(ctx, r.DetailURL, r.Name)
			if err != nil {
				d.logger.WithError(err).Debug("Detail fetch failed")
			} else {
				magnet = details.MagnetURI
			}
		}
		if magnet == "" {
			continue
		}

		downloadID, err := d.addToClient(c, magnet)
		if err != nil {
			// The chain continues to the next result.
			d.logger.WithError(err).WithField("release", r.Name).Error("Client add failed")
			continue
		}

		// The identifier is only stored after the add succeeded; a
		// failure here must propagate or the episode would be grabbed
		// again on the next run.
		if err := d.episodes.SetDownloadID(c.Episode.ID, downloadID); err != nil {
			return models.StatusGrabbed, fmt.Errorf("failed to store download id: %w", err)
		}

		d.notifier.NotifyGrabbed(c, r.Name)
		return models.StatusGrabbed, d.logOutcome(runID, c, query, models.StatusGrabbed, r.Name)
	}

	return models.StatusNoMatch, d.logOutcome(runID, c, query, models.StatusNoMatch, "")
}

// addToClient hands the magnet to the active client and returns the
// identifier to persist: the magnet's own info-hash when present, the
// protocol's identifier otherwise.
func (d *DecisionEngine) addToClient(c models.Candidate, magnet string) (string, error) {
	client, err := d.clients.Active()
	if err != nil {
		return "", err
	}

	dir := d.cfg.Client.DownloadPath
	if c.Show.DownloadDir != nil && *c.Show.DownloadDir != "" {
		dir = *c.Show.DownloadDir
	}

	clientID, err := client.AddMagnet(magnet, dir, d.cfg.Client.Label)
	if err != nil {
		return "", err
	}

	if hash, ok := utils.ExtractInfoHash(magnet); ok {
		return hash, nil
	}
	return clientID, nil
}

func (d *DecisionEngine) logOutcome(runID string, c models.Candidate, query string, status models.ActivityStatus, detail string) error {
	a := &models.Activity{
		RunID:       runID,
		SearchQuery: query,
		Status:      status,
		Detail:      detail,
		ShowName:    c.Show.Name,
		EpisodeCode: c.Episode.Code(),
	}
	if err := d.activity.Append(a); err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	d.logger.WithFields(logrus.Fields{
		"run_id":  runID,
		"show":    c.Show.Name,
		"episode": c.Episode.Code(),
		"status":  status.String(),
		"detail":  detail,
	}).Info("Candidate processed")
	return nil
}
