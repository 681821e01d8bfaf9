package notifications

import "episodarr/internal/database/models"

type Notifier interface {
	NotifyGrabbed(candidate models.Candidate, releaseName string)
	NotifyDownloadComplete(candidate models.Candidate, torrentName string)
	NotifyRunFinished(grabbed, skipped int)
	Test() error
}

// NopNotifier is used when no notification backend is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyGrabbed(models.Candidate, string)          {}
func (NopNotifier) NotifyDownloadComplete(models.Candidate, string) {}
func (NopNotifier) NotifyRunFinished(int, int)                      {}
func (NopNotifier) Test() error                                     { return nil }
