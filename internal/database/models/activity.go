package models

import (
	"database/sql"
	"time"
)

// ActivityStatus is the terminal outcome recorded for one candidate in
// one batch run. The numeric values are part of the stored log format.
type ActivityStatus int

const (
	StatusAlreadyDownloaded ActivityStatus = 0
	StatusAlreadyWatched    ActivityStatus = 1
	StatusHasDownload       ActivityStatus = 2
	StatusIneligible        ActivityStatus = 3
	StatusNoResults         ActivityStatus = 4
	StatusNoMatch           ActivityStatus = 5
	StatusGrabbed           ActivityStatus = 6
	StatusOnAir             ActivityStatus = 8
	StatusNoSearchName      ActivityStatus = 9
)

func (s ActivityStatus) String() string {
	switch s {
	case StatusAlreadyDownloaded:
		return "already downloaded"
	case StatusAlreadyWatched:
		return "already watched"
	case StatusHasDownload:
		return "download in flight"
	case StatusIneligible:
		return "ineligible"
	case StatusNoResults:
		return "no results"
	case StatusNoMatch:
		return "no matching release"
	case StatusGrabbed:
		return "grabbed"
	case StatusOnAir:
		return "still on air"
	case StatusNoSearchName:
		return "no search name"
	}
	return "unknown"
}

// Activity is one append-only auto-download log row. Rows are never
// mutated or deleted by the decision engine.
type Activity struct {
	ID          int            `json:"id" db:"id"`
	RunID       string         `json:"run_id" db:"run_id"`
	SearchQuery string         `json:"search_query" db:"search_query"`
	Status      ActivityStatus `json:"status" db:"status"`
	Detail      string         `json:"detail" db:"detail"`
	ShowName    string         `json:"show_name" db:"show_name"`
	EpisodeCode string         `json:"episode_code" db:"episode_code"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Append(a *Activity) error {
	result, err := r.db.Exec(`
        INSERT INTO activities (run_id, search_query, status, detail, show_name, episode_code)
        VALUES (?, ?, ?, ?, ?, ?)
    `, a.RunID, a.SearchQuery, a.Status, a.Detail, a.ShowName, a.EpisodeCode)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	a.ID = int(id)
	a.CreatedAt = time.Now()
	return nil
}

// Recent returns the newest activity rows, most recent first.
func (r *ActivityRepository) Recent(limit int) ([]Activity, error) {
	rows, err := r.db.Query(`
        SELECT id, run_id, search_query, status, detail, show_name, episode_code, created_at
        FROM activities
        ORDER BY id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.RunID, &a.SearchQuery, &a.Status,
			&a.Detail, &a.ShowName, &a.EpisodeCode, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}
