// Package torrent normalizes a dozen incompatible torrent-client
// control protocols behind one capability contract. Callers see Records
// and the Client verbs; every protocol difference is confined to the
// adapters and their Specs.
package torrent

import (
	"fmt"
	"sync"
	"time"
)

// Client is the control-plane contract every protocol adapter fulfills.
// Operations a protocol cannot express succeed as no-ops; only real
// transport or protocol failures surface as errors.
type Client interface {
	Protocol() string
	// Ping verifies the daemon is reachable and credentials work.
	Ping() error
	// List returns a normalized snapshot of every torrent.
	List() ([]Record, error)
	// AddMagnet hands a magnet URI to the daemon and returns the
	// protocol's identifier for the new torrent.
	AddMagnet(magnetURI, downloadDir, label string) (string, error)
	Start(id string) error
	Stop(id string) error
	// Pause aliases Stop on protocols without a distinct pause verb.
	Pause(id string) error
	Remove(id string) error
	// Files lists per-file names; protocols without a listing return a
	// single synthetic entry.
	Files(id string) ([]string, error)
}

// Options carries the connection settings for the active client.
type Options struct {
	Type     string
	Host     string
	Username string
	Password string
	Secret   string
}

const defaultTimeout = 30 * time.Second

type factory func(Options) (Client, error)

var factories = map[string]factory{
	"qbittorrent":  func(o Options) (Client, error) { return NewQBittorrentClient(o), nil },
	"transmission": func(o Options) (Client, error) { return NewTransmissionClient(o), nil },
	"vuze":         func(o Options) (Client, error) { return NewVuzeClient(o), nil },
	"deluge":       func(o Options) (Client, error) { return NewDelugeClient(o), nil },
	"aria2":        func(o Options) (Client, error) { return NewAria2Client(o), nil },
	"rtorrent":     func(o Options) (Client, error) { return NewRTorrentClient(o), nil },
	"utorrent":     func(o Options) (Client, error) { return NewUTorrentClient(o), nil },
	"tixati":       func(o Options) (Client, error) { return NewTixatiClient(o), nil },
	"flood":        func(o Options) (Client, error) { return NewFloodClient(o), nil },
	"synology":     func(o Options) (Client, error) { return NewSynologyClient(o), nil },
	"ktorrent":     func(o Options) (Client, error) { return NewKTorrentClient(o), nil },
	"stub":         func(o Options) (Client, error) { return NewStubClient(), nil },
}

// Registry holds the configured adapter set and resolves the active
// client. With no client type configured the stub is active, keeping
// the rest of the pipeline functional.
type Registry struct {
	opts Options

	mu     sync.Mutex
	active Client
}

func NewRegistry(opts Options) *Registry {
	return &Registry{opts: opts}
}

// Protocols lists every supported client type.
func (r *Registry) Protocols() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// Active returns the configured client, constructing it on first use.
func (r *Registry) Active() (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return r.active, nil
	}

	kind := r.opts.Type
	if kind == "" {
		kind = "stub"
	}
	build, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported torrent client type %q", kind)
	}
	client, err := build(r.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s client: %w", kind, err)
	}
	r.active = client
	return client, nil
}
