package torrent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

var transmissionFields = []string{
	"hashString", "name", "percentDone", "status", "rateDownload",
	"downloadDir", "files",
}

// TransmissionClient speaks the Transmission JSON-RPC protocol. Vuze
// reuses it through its xmwebui compatibility endpoint with its own
// Spec, so the protocol name and adapter table are parameters.
type TransmissionClient struct {
	host       string
	username   string
	password   string
	rpcPath    string
	sessionID  string
	spec       Spec
	httpClient *http.Client
}

func NewTransmissionClient(opts Options) *TransmissionClient {
	return &TransmissionClient{
		host:       opts.Host,
		username:   opts.Username,
		password:   opts.Password,
		rpcPath:    "/transmission/rpc",
		spec:       transmissionSpec,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewVuzeClient talks to Vuze's xmwebui plugin, which implements the
// Transmission RPC dialect.
func NewVuzeClient(opts Options) *TransmissionClient {
	c := NewTransmissionClient(opts)
	c.spec = vuzeSpec
	return c
}

func (t *TransmissionClient) Protocol() string { return t.spec.Protocol }

func (t *TransmissionClient) sendRequest(method string, args any) (map[string]any, error) {
	reqData := map[string]any{
		"method":    method,
		"arguments": args,
	}

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", fmt.Sprintf("http://%s%s", t.host, t.rpcPath), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	if t.username != "" && t.password != "" {
		req.SetBasicAuth(t.username, t.password)
	}
	if t.sessionID != "" {
		req.Header.Set("X-Transmission-Session-Id", t.sessionID)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// 409 means the daemon wants a session id; retry once with it.
	if resp.StatusCode == http.StatusConflict {
		t.sessionID = resp.Header.Get("X-Transmission-Session-Id")
		return t.sendRequest(method, args)
	}

	var response map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if result, ok := response["result"].(string); !ok || result != "success" {
		return nil, fmt.Errorf("%s request failed: %v", t.spec.Protocol, response["result"])
	}

	return response, nil
}

func (t *TransmissionClient) Ping() error {
	_, err := t.sendRequest("session-get", map[string]any{})
	return err
}

func (t *TransmissionClient) torrents(response map[string]any) []map[string]any {
	arguments, ok := response["arguments"].(map[string]any)
	if !ok {
		return nil
	}
	list, ok := arguments["torrents"].([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range list {
		if entry, ok := item.(map[string]any); ok {
			out = append(out, entry)
		}
	}
	return out
}

func (t *TransmissionClient) List() ([]Record, error) {
	response, err := t.sendRequest("torrent-get", map[string]any{"fields": transmissionFields})
	if err != nil {
		return nil, err
	}
	entries := t.torrents(response)
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, t.spec.BuildRecord(entry))
	}
	return records, nil
}

func (t *TransmissionClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	args := map[string]any{
		"filename":     magnetURI,
		"download-dir": downloadDir,
		"labels":       []string{label},
	}
	response, err := t.sendRequest("torrent-add", args)
	if err != nil {
		return "", err
	}

	if arguments, ok := response["arguments"].(map[string]any); ok {
		for _, key := range []string{"torrent-added", "torrent-duplicate"} {
			if added, ok := arguments[key].(map[string]any); ok {
				if hash, ok := added["hashString"].(string); ok {
					return strings.ToLower(hash), nil
				}
			}
		}
	}
	return "", fmt.Errorf("could not extract torrent hash from %s response", t.spec.Protocol)
}

func (t *TransmissionClient) Start(id string) error {
	_, err := t.sendRequest("torrent-start", map[string]any{"ids": []string{id}})
	return err
}

func (t *TransmissionClient) Stop(id string) error {
	_, err := t.sendRequest("torrent-stop", map[string]any{"ids": []string{id}})
	return err
}

// Pause aliases Stop; the RPC has no separate pause verb.
func (t *TransmissionClient) Pause(id string) error { return t.Stop(id) }

func (t *TransmissionClient) Remove(id string) error {
	_, err := t.sendRequest("torrent-remove", map[string]any{
		"ids":               []string{id},
		"delete-local-data": false,
	})
	return err
}

func (t *TransmissionClient) Files(id string) ([]string, error) {
	response, err := t.sendRequest("torrent-get", map[string]any{
		"fields": []string{"files"},
		"ids":    []string{id},
	})
	if err != nil {
		return nil, err
	}
	entries := t.torrents(response)
	if len(entries) == 0 {
		return nil, fmt.Errorf("torrent %s not found", id)
	}
	return extractFiles(entries[0]["files"], "name"), nil
}
