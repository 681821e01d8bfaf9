package torrent

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SynologyClient speaks the Synology Download Station web API. Auth
// yields a sid token appended to every request.
type SynologyClient struct {
	host       string
	username   string
	password   string
	sid        string
	httpClient *http.Client
}

type synologyResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code int `json:"code"`
	} `json:"error"`
}

func NewSynologyClient(opts Options) *SynologyClient {
	return &SynologyClient{
		host:       strings.TrimRight(opts.Host, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (s *SynologyClient) Protocol() string { return "synology" }

func (s *SynologyClient) call(path string, params url.Values, out any) error {
	if s.sid != "" {
		params.Set("_sid", s.sid)
	}
	resp, err := s.httpClient.Get(s.host + path + "?" + params.Encode())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("synology request %s failed with status: %s", path, resp.Status)
	}

	var envelope synologyResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if !envelope.Success {
		code := 0
		if envelope.Error != nil {
			code = envelope.Error.Code
		}
		return fmt.Errorf("synology API error %d for %s", code, path)
	}
	if out == nil || envelope.Data == nil {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}

func (s *SynologyClient) login() error {
	params := url.Values{
		"api":     {"SYNO.API.Auth"},
		"version": {"2"},
		"method":  {"login"},
		"account": {s.username},
		"passwd":  {s.password},
		"session": {"DownloadStation"},
		"format":  {"sid"},
	}
	var data struct {
		SID string `json:"sid"`
	}
	if err := s.call("/webapi/auth.cgi", params, &data); err != nil {
		return err
	}
	s.sid = data.SID
	return nil
}

func (s *SynologyClient) task(params url.Values, out any) error {
	if s.sid == "" {
		if err := s.login(); err != nil {
			return err
		}
	}
	params.Set("api", "SYNO.DownloadStation.Task")
	params.Set("version", "1")
	return s.call("/webapi/DownloadStation/task.cgi", params, out)
}

func (s *SynologyClient) Ping() error {
	return s.login()
}

func (s *SynologyClient) List() ([]Record, error) {
	params := url.Values{
		"method":     {"list"},
		"additional": {"detail,transfer"},
	}
	var data struct {
		Tasks []map[string]any `json:"tasks"`
	}
	if err := s.task(params, &data); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(data.Tasks))
	for _, entry := range data.Tasks {
		// Hoist the nested additional sections into flat fields.
		if add, ok := entry["additional"].(map[string]any); ok {
			if detail, ok := add["detail"].(map[string]any); ok {
				entry["destination"] = detail["destination"]
			}
			if transfer, ok := add["transfer"].(map[string]any); ok {
				entry["size_downloaded"] = transfer["size_downloaded"]
				entry["speed_download"] = transfer["speed_download"]
			}
		}
		records = append(records, synologySpec.BuildRecord(entry))
	}
	return records, nil
}

func (s *SynologyClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	params := url.Values{
		"method": {"create"},
		"uri":    {magnetURI},
	}
	if downloadDir != "" {
		params.Set("destination", downloadDir)
	}
	if err := s.task(params, nil); err != nil {
		return "", err
	}
	// Download Station assigns its own dbid; the caller keys on the
	// magnet's hash instead.
	return "", nil
}

func (s *SynologyClient) Start(id string) error {
	return s.task(url.Values{"method": {"resume"}, "id": {id}}, nil)
}

func (s *SynologyClient) Stop(id string) error {
	return s.task(url.Values{"method": {"pause"}, "id": {id}}, nil)
}

// Pause aliases Stop; the API pauses rather than stops.
func (s *SynologyClient) Pause(id string) error { return s.Stop(id) }

func (s *SynologyClient) Remove(id string) error {
	return s.task(url.Values{"method": {"delete"}, "id": {id}, "force_complete": {"false"}}, nil)
}

func (s *SynologyClient) Files(id string) ([]string, error) {
	params := url.Values{
		"method":     {"getinfo"},
		"id":         {id},
		"additional": {"file"},
	}
	var data struct {
		Tasks []map[string]any `json:"tasks"`
	}
	if err := s.task(params, &data); err != nil {
		return nil, err
	}
	if len(data.Tasks) == 0 {
		return nil, fmt.Errorf("task %s not found", id)
	}
	if add, ok := data.Tasks[0]["additional"].(map[string]any); ok {
		if files := extractFiles(add["file"], "filename"); len(files) > 0 {
			return files, nil
		}
	}
	// No per-file listing; degrade to the task title.
	if title, ok := toString(data.Tasks[0]["title"]); ok && title != "" {
		return []string{title}, nil
	}
	return nil, nil
}
