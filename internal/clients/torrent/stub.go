package torrent

import (
	"sync"

	"episodarr/internal/utils"
)

// StubClient is the no-client configuration. Adds are accepted and
// remembered in memory; every torrent reports complete and idle, so the
// poll loop still marks manually launched downloads as finished.
type StubClient struct {
	mu    sync.Mutex
	added []Record
}

func NewStubClient() *StubClient {
	return &StubClient{}
}

func (s *StubClient) Protocol() string { return "stub" }

func (s *StubClient) Ping() error { return nil }

func (s *StubClient) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.added))
	copy(out, s.added)
	return out, nil
}

func (s *StubClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	id, _ := utils.ExtractInfoHash(magnetURI)
	rec := stubSpec.BuildRecord(map[string]any{"name": magnetURI, "id": id})
	s.mu.Lock()
	s.added = append(s.added, rec)
	s.mu.Unlock()
	return id, nil
}

func (s *StubClient) Start(id string) error  { return nil }
func (s *StubClient) Stop(id string) error   { return nil }
func (s *StubClient) Pause(id string) error  { return nil }
func (s *StubClient) Remove(id string) error { return nil }

func (s *StubClient) Files(id string) ([]string, error) { return nil, nil }
