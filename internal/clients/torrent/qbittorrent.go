package torrent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"episodarr/internal/utils"
)

// QBittorrentClient speaks the qBittorrent Web API v2.
type QBittorrentClient struct {
	host       string
	username   string
	password   string
	httpClient *http.Client
}

func NewQBittorrentClient(opts Options) *QBittorrentClient {
	return &QBittorrentClient{
		host:       strings.TrimRight(opts.Host, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (q *QBittorrentClient) Protocol() string { return "qbittorrent" }

// login authenticates and returns the SID session cookie.
func (q *QBittorrentClient) login() (*http.Cookie, error) {
	data := url.Values{}
	data.Set("username", q.username)
	data.Set("password", q.password)

	req, err := http.NewRequest("POST", q.host+"/api/v2/auth/login", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qbittorrent login failed with status: %s", resp.Status)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "SID" {
			return cookie, nil
		}
	}
	return nil, fmt.Errorf("SID cookie not found after login")
}

func (q *QBittorrentClient) get(path string, out any) error {
	cookie, err := q.login()
	if err != nil {
		return err
	}
	req, err := http.NewRequest("GET", q.host+path, nil)
	if err != nil {
		return err
	}
	req.AddCookie(cookie)

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qbittorrent request %s failed with status: %s", path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (q *QBittorrentClient) postForm(path string, data url.Values) error {
	cookie, err := q.login()
	if err != nil {
		return err
	}
	req, err := http.NewRequest("POST", q.host+path, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.AddCookie(cookie)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qbittorrent request %s failed with status: %s", path, resp.Status)
	}
	return nil
}

func (q *QBittorrentClient) Ping() error {
	_, err := q.login()
	return err
}

func (q *QBittorrentClient) List() ([]Record, error) {
	var raw []map[string]any
	if err := q.get("/api/v2/torrents/info", &raw); err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(raw))
	for _, entry := range raw {
		records = append(records, qbittorrentSpec.BuildRecord(entry))
	}
	return records, nil
}

func (q *QBittorrentClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	data := url.Values{}
	data.Set("urls", magnetURI)
	data.Set("savepath", downloadDir)
	data.Set("category", label)
	if err := q.postForm("/api/v2/torrents/add", data); err != nil {
		return "", err
	}
	// The add endpoint returns no body; the identifier comes from the
	// magnet itself.
	if hash, ok := utils.ExtractInfoHash(magnetURI); ok {
		return hash, nil
	}
	return "", fmt.Errorf("could not extract info-hash from magnet link")
}

func (q *QBittorrentClient) Start(id string) error {
	return q.postForm("/api/v2/torrents/resume", url.Values{"hashes": {id}})
}

func (q *QBittorrentClient) Stop(id string) error {
	return q.postForm("/api/v2/torrents/pause", url.Values{"hashes": {id}})
}

// Pause aliases Stop: the Web API only distinguishes pause/resume.
func (q *QBittorrentClient) Pause(id string) error { return q.Stop(id) }

func (q *QBittorrentClient) Remove(id string) error {
	data := url.Values{}
	data.Set("hashes", id)
	data.Set("deleteFiles", "false")
	return q.postForm("/api/v2/torrents/delete", data)
}

func (q *QBittorrentClient) Files(id string) ([]string, error) {
	var raw []map[string]any
	if err := q.get("/api/v2/torrents/files?hash="+url.QueryEscape(id), &raw); err != nil {
		return nil, err
	}
	files := make([]string, 0, len(raw))
	for _, f := range raw {
		if name, ok := toString(f["name"]); ok {
			files = append(files, name)
		}
	}
	return files, nil
}
