package notifications

import (
	"fmt"

	"episodarr/internal/database/models"

	"github.com/sirupsen/logrus"
	"github.com/xconstruct/go-pushbullet"
)

// PushbulletClient implements the Notifier interface for Pushbullet.
type PushbulletClient struct {
	pb     *pushbullet.Client
	logger *logrus.Logger
}

func NewPushbulletClient(apiKey string, logger *logrus.Logger) *PushbulletClient {
	return &PushbulletClient{
		pb:     pushbullet.New(apiKey),
		logger: logger,
	}
}

// sendPush sends a note to all of the user's devices.
func (c *PushbulletClient) sendPush(title, body string) error {
	// Empty device iden pushes to every device.
	return c.pb.PushNote("", title, body)
}

// NotifyGrabbed sends a notification when a release is handed to the
// download client.
func (c *PushbulletClient) NotifyGrabbed(candidate models.Candidate, releaseName string) {
	title := fmt.Sprintf("Grabbed: %s %s", candidate.Show.Name, candidate.Episode.Code())
	body := fmt.Sprintf("Sent to client: %s", releaseName)
	if err := c.sendPush(title, body); err != nil {
		c.logger.WithError(err).Error("Error sending Pushbullet notification")
	}
}

// NotifyDownloadComplete sends a notification when the client reports
// the torrent finished.
func (c *PushbulletClient) NotifyDownloadComplete(candidate models.Candidate, torrentName string) {
	title := fmt.Sprintf("Download Complete: %s %s", candidate.Show.Name, candidate.Episode.Code())
	body := fmt.Sprintf("Finished downloading: %s", torrentName)
	if err := c.sendPush(title, body); err != nil {
		c.logger.WithError(err).Error("Error sending Pushbullet notification")
	}
}

// NotifyRunFinished summarizes a batch run that grabbed something.
func (c *PushbulletClient) NotifyRunFinished(grabbed, skipped int) {
	if grabbed == 0 {
		return
	}
	title := "Auto-download run finished"
	body := fmt.Sprintf("Grabbed %d episode(s), skipped %d", grabbed, skipped)
	if err := c.sendPush(title, body); err != nil {
		c.logger.WithError(err).Error("Error sending Pushbullet notification")
	}
}

// Test verifies the API key by fetching user info.
func (c *PushbulletClient) Test() error {
	if _, err := c.pb.Me(); err != nil {
		return fmt.Errorf("pushbullet authentication failed: %w", err)
	}
	return nil
}
