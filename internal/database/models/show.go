package models

import (
	"database/sql"
	"fmt"
	"time"
)

type Show struct {
	ID               int     `json:"id" db:"id"`
	Name             string  `json:"name" db:"name"`
	SearchName       string  `json:"search_name" db:"search_name"`
	RuntimeMinutes   int     `json:"runtime_minutes" db:"runtime_minutes"`
	AutoDownload     bool    `json:"auto_download" db:"auto_download"`
	Hidden           bool    `json:"hidden" db:"hidden"`
	UseGlobalQuality bool    `json:"use_global_quality" db:"use_global_quality"`
	UseGlobalInclude bool    `json:"use_global_include" db:"use_global_include"`
	UseGlobalExclude bool    `json:"use_global_exclude" db:"use_global_exclude"`
	IncludeKeywords  string  `json:"include_keywords" db:"include_keywords"`
	ExcludeKeywords  string  `json:"exclude_keywords" db:"exclude_keywords"`
	CustomMinSeeders *int    `json:"custom_min_seeders,omitempty" db:"custom_min_seeders"`
	CustomDelayMin   *int    `json:"custom_delay_minutes,omitempty" db:"custom_delay_minutes"`
	CustomEngine     *string `json:"custom_engine,omitempty" db:"custom_engine"`
	ShowSpecials     *bool   `json:"show_specials,omitempty" db:"show_specials"`
	DownloadDir      *string `json:"download_dir,omitempty" db:"download_dir"`
}

type Episode struct {
	ID           int     `json:"id" db:"id"`
	ShowID       int     `json:"show_id" db:"show_id"`
	Season       int     `json:"season" db:"season"`
	Episode      int     `json:"episode" db:"episode"`
	Title        string  `json:"title" db:"title"`
	FirstAiredMs int64   `json:"first_aired_ms" db:"first_aired_ms"`
	Watched      bool    `json:"watched" db:"watched"`
	Downloaded   bool    `json:"downloaded" db:"downloaded"`
	DownloadID   *string `json:"download_id,omitempty" db:"download_id"`
}

// Code returns the SxxEyy episode code used in search queries.
func (e Episode) Code() string {
	return fmt.Sprintf("S%02dE%02d", e.Season, e.Episode)
}

// IsSpecial reports whether the episode belongs to the specials season.
func (e Episode) IsSpecial() bool {
	return e.Season == 0
}

// Candidate is an episode joined with its show, as evaluated by one
// auto-download batch run.
type Candidate struct {
	Episode Episode
	Show    Show
}

type EpisodeRepository struct {
	db *sql.DB
}

func NewEpisodeRepository(db *sql.DB) *EpisodeRepository {
	return &EpisodeRepository{db: db}
}

const showColumns = `s.id, s.name, s.search_name, s.runtime_minutes, s.auto_download, s.hidden,
       s.use_global_quality, s.use_global_include, s.use_global_exclude,
       s.include_keywords, s.exclude_keywords,
       s.custom_min_seeders, s.custom_delay_minutes, s.custom_engine, s.show_specials, s.download_dir`

const episodeColumns = `e.id, e.show_id, e.season, e.episode, e.title, e.first_aired_ms,
       e.watched, e.downloaded, e.download_id`

func scanCandidate(rows *sql.Rows) (Candidate, error) {
	var c Candidate
	err := rows.Scan(
		&c.Episode.ID, &c.Episode.ShowID, &c.Episode.Season, &c.Episode.Episode,
		&c.Episode.Title, &c.Episode.FirstAiredMs, &c.Episode.Watched,
		&c.Episode.Downloaded, &c.Episode.DownloadID,
		&c.Show.ID, &c.Show.Name, &c.Show.SearchName, &c.Show.RuntimeMinutes,
		&c.Show.AutoDownload, &c.Show.Hidden,
		&c.Show.UseGlobalQuality, &c.Show.UseGlobalInclude, &c.Show.UseGlobalExclude,
		&c.Show.IncludeKeywords, &c.Show.ExcludeKeywords,
		&c.Show.CustomMinSeeders, &c.Show.CustomDelayMin, &c.Show.CustomEngine,
		&c.Show.ShowSpecials, &c.Show.DownloadDir,
	)
	return c, err
}

// AiringBetween returns the candidate episodes whose air timestamp falls
// within [from, to], joined with the show fields the filter chain needs.
func (r *EpisodeRepository) AiringBetween(from, to time.Time) ([]Candidate, error) {
	query := fmt.Sprintf(`
        SELECT %s, %s
        FROM episodes e
        JOIN shows s ON s.id = e.show_id
        WHERE e.first_aired_ms BETWEEN ? AND ?
        ORDER BY e.first_aired_ms ASC
    `, episodeColumns, showColumns)

	rows, err := r.db.Query(query, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// SetDownloadID stores the external download identifier on an episode.
// Callers must only invoke this after the client add has succeeded.
func (r *EpisodeRepository) SetDownloadID(episodeID int, downloadID string) error {
	_, err := r.db.Exec("UPDATE episodes SET download_id = ? WHERE id = ?", downloadID, episodeID)
	return err
}

func (r *EpisodeRepository) MarkDownloaded(episodeID int) error {
	_, err := r.db.Exec("UPDATE episodes SET downloaded = 1 WHERE id = ?", episodeID)
	return err
}

func (r *EpisodeRepository) MarkWatched(episodeID int) error {
	_, err := r.db.Exec("UPDATE episodes SET watched = 1 WHERE id = ?", episodeID)
	return err
}

// WithDownloadID returns episodes that carry an in-flight download
// identifier, for the poll loop that flips them to downloaded.
func (r *EpisodeRepository) WithDownloadID() ([]Episode, error) {
	rows, err := r.db.Query(`
        SELECT id, show_id, season, episode, title, first_aired_ms, watched, downloaded, download_id
        FROM episodes
        WHERE download_id IS NOT NULL AND downloaded = 0
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.ShowID, &e.Season, &e.Episode, &e.Title,
			&e.FirstAiredMs, &e.Watched, &e.Downloaded, &e.DownloadID); err != nil {
			return nil, err
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}
