package torrent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
)

var delugeKeys = []string{
	"name", "progress", "state", "save_path", "download_payload_rate", "files",
}

// DelugeClient speaks the Deluge web JSON-RPC protocol.
type DelugeClient struct {
	host       string
	password   string
	httpClient *http.Client
	reqID      int
	mu         sync.Mutex // protects reqID
}

type delugeRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int    `json:"id"`
}

type delugeResponse struct {
	Result any `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
	ID int `json:"id"`
}

func NewDelugeClient(opts Options) *DelugeClient {
	jar, _ := cookiejar.New(nil)
	return &DelugeClient{
		host:       strings.TrimRight(opts.Host, "/"),
		password:   opts.Password,
		httpClient: &http.Client{Jar: jar, Timeout: defaultTimeout},
		reqID:      1,
	}
}

func (d *DelugeClient) Protocol() string { return "deluge" }

func (d *DelugeClient) login() error {
	_, err := d.sendRequest("auth.login", []any{d.password})
	return err
}

func (d *DelugeClient) sendRequest(method string, params []any) (any, error) {
	d.mu.Lock()
	reqID := d.reqID
	d.reqID++
	d.mu.Unlock()

	jsonData, err := json.Marshal(delugeRequest{Method: method, Params: params, ID: reqID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", d.host, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res delugeResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}

	if res.Error != nil {
		// Session may have expired; log in again and retry once.
		if strings.Contains(res.Error.Message, "Not authenticated") && method != "auth.login" {
			if err := d.login(); err == nil {
				return d.sendRequest(method, params)
			}
		}
		return nil, fmt.Errorf("deluge API error for method %q: %s", method, res.Error.Message)
	}

	return res.Result, nil
}

func (d *DelugeClient) Ping() error {
	if err := d.login(); err != nil {
		return err
	}
	_, err := d.sendRequest("web.connected", []any{})
	return err
}

func (d *DelugeClient) List() ([]Record, error) {
	result, err := d.sendRequest("core.get_torrents_status", []any{map[string]any{}, delugeKeys})
	if err != nil {
		return nil, err
	}
	torrents, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected deluge torrent list shape")
	}

	records := make([]Record, 0, len(torrents))
	for hash, data := range torrents {
		entry, ok := data.(map[string]any)
		if !ok {
			continue
		}
		// The daemon keys the map by info-hash instead of carrying it
		// as a field.
		entry["hash"] = hash
		records = append(records, delugeSpec.BuildRecord(entry))
	}
	return records, nil
}

func (d *DelugeClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	options := map[string]string{"download_location": downloadDir}
	result, err := d.sendRequest("core.add_torrent_magnet", []any{magnetURI, options})
	if err != nil {
		return "", err
	}
	hash, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("deluge did not return an info-hash")
	}
	if label != "" {
		// Requires the Label plugin; adding still succeeded without it.
		d.sendRequest("label.set_torrent", []any{hash, label})
	}
	return hash, nil
}

func (d *DelugeClient) Start(id string) error {
	_, err := d.sendRequest("core.resume_torrent", []any{[]string{id}})
	return err
}

func (d *DelugeClient) Stop(id string) error {
	_, err := d.sendRequest("core.pause_torrent", []any{[]string{id}})
	return err
}

// Pause aliases Stop; deluge only pauses.
func (d *DelugeClient) Pause(id string) error { return d.Stop(id) }

func (d *DelugeClient) Remove(id string) error {
	_, err := d.sendRequest("core.remove_torrent", []any{id, false})
	return err
}

func (d *DelugeClient) Files(id string) ([]string, error) {
	result, err := d.sendRequest("core.get_torrent_status", []any{id, []string{"files"}})
	if err != nil {
		return nil, err
	}
	data, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("torrent %s not found", id)
	}
	return extractFiles(data["files"], "path"), nil
}
