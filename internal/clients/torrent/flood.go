package torrent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
)

// FloodClient speaks the Flood web UI REST API. Authentication sets a
// JWT cookie kept in the client's jar.
type FloodClient struct {
	host       string
	username   string
	password   string
	httpClient *http.Client
}

func NewFloodClient(opts Options) *FloodClient {
	jar, _ := cookiejar.New(nil)
	return &FloodClient{
		host:       strings.TrimRight(opts.Host, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Jar: jar, Timeout: defaultTimeout},
	}
}

func (f *FloodClient) Protocol() string { return "flood" }

func (f *FloodClient) login() error {
	body, _ := json.Marshal(map[string]string{
		"username": f.username,
		"password": f.password,
	})
	resp, err := f.httpClient.Post(f.host+"/api/auth/authenticate", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("flood login failed with status: %s", resp.Status)
	}
	return nil
}

func (f *FloodClient) request(method, path string, payload any, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.host+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Expired session cookie; authenticate and retry once.
	if resp.StatusCode == http.StatusUnauthorized {
		if err := f.login(); err != nil {
			return err
		}
		body.Seek(0, 0)
		req2, err := http.NewRequest(method, f.host+path, body)
		if err != nil {
			return err
		}
		if payload != nil {
			req2.Header.Set("Content-Type", "application/json")
		}
		resp2, err := f.httpClient.Do(req2)
		if err != nil {
			return err
		}
		defer resp2.Body.Close()
		resp = resp2
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("flood request %s failed with status: %s", path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (f *FloodClient) Ping() error {
	return f.login()
}

func (f *FloodClient) List() ([]Record, error) {
	var payload struct {
		Torrents map[string]map[string]any `json:"torrents"`
	}
	if err := f.request("GET", "/api/torrents", nil, &payload); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(payload.Torrents))
	for hash, entry := range payload.Torrents {
		entry["hash"] = hash
		records = append(records, floodSpec.BuildRecord(entry))
	}
	return records, nil
}

func (f *FloodClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	payload := map[string]any{
		"urls":        []string{magnetURI},
		"destination": downloadDir,
		"tags":        []string{label},
		"start":       true,
	}
	if err := f.request("POST", "/api/torrents/add-urls", payload, nil); err != nil {
		return "", err
	}
	// The add endpoint reports success without an identifier; the
	// caller derives it from the magnet.
	return "", nil
}

func (f *FloodClient) hashes(action, id string) error {
	return f.request("POST", "/api/torrents/"+action, map[string]any{"hashes": []string{id}}, nil)
}

func (f *FloodClient) Start(id string) error { return f.hashes("start", id) }
func (f *FloodClient) Stop(id string) error  { return f.hashes("stop", id) }

// Pause aliases Stop; Flood exposes start/stop only.
func (f *FloodClient) Pause(id string) error { return f.Stop(id) }

func (f *FloodClient) Remove(id string) error {
	return f.request("POST", "/api/torrents/delete", map[string]any{
		"hashes":     []string{id},
		"deleteData": false,
	}, nil)
}

func (f *FloodClient) Files(id string) ([]string, error) {
	var contents []map[string]any
	if err := f.request("GET", "/api/torrents/"+id+"/contents", nil, &contents); err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range contents {
		if path, ok := toString(entry["path"]); ok && path != "" {
			files = append(files, path)
		}
	}
	return files, nil
}
