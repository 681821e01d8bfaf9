package torrent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Aria2Client speaks the aria2 JSON-RPC protocol with secret-token auth.
type Aria2Client struct {
	host       string
	secret     string
	httpClient *http.Client
}

type aria2Request struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type aria2Response struct {
	ID      string `json:"id"`
	Jsonrpc string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAria2Client(opts Options) *Aria2Client {
	return &Aria2Client{
		host:       strings.TrimRight(opts.Host, "/"),
		secret:     opts.Secret,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (a *Aria2Client) Protocol() string { return "aria2" }

func (a *Aria2Client) sendRequest(method string, params ...any) (any, error) {
	tokenParams := append([]any{"token:" + a.secret}, params...)

	jsonData, err := json.Marshal(aria2Request{
		Jsonrpc: "2.0",
		ID:      "episodarr",
		Method:  method,
		Params:  tokenParams,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", a.host, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response aria2Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	if response.Error != nil {
		return nil, fmt.Errorf("aria2 error: %s (code: %d)", response.Error.Message, response.Error.Code)
	}
	return response.Result, nil
}

func (a *Aria2Client) Ping() error {
	_, err := a.sendRequest("aria2.getVersion")
	return err
}

// flatten hoists the nested bittorrent metadata name so the Spec can
// read it like any other field.
func aria2Flatten(entry map[string]any) map[string]any {
	if bt, ok := entry["bittorrent"].(map[string]any); ok {
		if info, ok := bt["info"].(map[string]any); ok {
			if name, ok := info["name"]; ok {
				entry["name"] = name
			}
		}
	}
	return entry
}

func (a *Aria2Client) List() ([]Record, error) {
	var records []Record
	calls := [][]any{
		{"aria2.tellActive"},
		{"aria2.tellWaiting", 0, 1000},
		{"aria2.tellStopped", 0, 1000},
	}
	for _, call := range calls {
		result, err := a.sendRequest(call[0].(string), call[1:]...)
		if err != nil {
			return nil, err
		}
		list, ok := result.([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			if entry, ok := item.(map[string]any); ok {
				records = append(records, aria2Spec.BuildRecord(aria2Flatten(entry)))
			}
		}
	}
	return records, nil
}

func (a *Aria2Client) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	options := map[string]string{"dir": downloadDir}
	result, err := a.sendRequest("aria2.addUri", []string{magnetURI}, options)
	if err != nil {
		return "", err
	}
	gid, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("aria2 did not return a gid")
	}
	return gid, nil
}

func (a *Aria2Client) Start(id string) error {
	_, err := a.sendRequest("aria2.unpause", id)
	return err
}

func (a *Aria2Client) Stop(id string) error {
	_, err := a.sendRequest("aria2.pause", id)
	return err
}

// Pause aliases Stop; aria2 only has pause/unpause.
func (a *Aria2Client) Pause(id string) error { return a.Stop(id) }

func (a *Aria2Client) Remove(id string) error {
	_, err := a.sendRequest("aria2.remove", id)
	return err
}

func (a *Aria2Client) Files(id string) ([]string, error) {
	result, err := a.sendRequest("aria2.getFiles", id)
	if err != nil {
		return nil, err
	}
	return extractFiles(result, "path"), nil
}
