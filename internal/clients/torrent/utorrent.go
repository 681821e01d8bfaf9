package torrent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"

	"episodarr/internal/utils"
)

var utorrentTokenRe = regexp.MustCompile(`<div[^>]*id=['"]token['"][^>]*>([^<]+)</div>`)

// UTorrentClient speaks the uTorrent Web UI API: CSRF token from
// token.html, then GET actions against /gui/. The torrent list arrives
// as positional arrays, mapped to named fields before normalization.
type UTorrentClient struct {
	host       string
	username   string
	password   string
	token      string
	httpClient *http.Client
}

func NewUTorrentClient(opts Options) *UTorrentClient {
	jar, _ := cookiejar.New(nil)
	return &UTorrentClient{
		host:       strings.TrimRight(opts.Host, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Jar: jar, Timeout: defaultTimeout},
	}
}

func (u *UTorrentClient) Protocol() string { return "utorrent" }

func (u *UTorrentClient) fetchToken() error {
	req, err := http.NewRequest("GET", u.host+"/gui/token.html", nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(u.username, u.password)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("utorrent token fetch failed with status: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	m := utorrentTokenRe.FindSubmatch(body)
	if m == nil {
		return fmt.Errorf("utorrent token not found in token.html")
	}
	u.token = string(m[1])
	return nil
}

func (u *UTorrentClient) get(query url.Values, out any) error {
	if u.token == "" {
		if err := u.fetchToken(); err != nil {
			return err
		}
	}
	query.Set("token", u.token)

	req, err := http.NewRequest("GET", u.host+"/gui/?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(u.username, u.password)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Tokens expire; refresh and retry once.
	if resp.StatusCode == http.StatusMultipleChoices || resp.StatusCode == http.StatusUnauthorized {
		u.token = ""
		if err := u.fetchToken(); err != nil {
			return err
		}
		query.Set("token", u.token)
		return u.get(query, out)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("utorrent request failed with status: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (u *UTorrentClient) Ping() error {
	return u.fetchToken()
}

// List positions per the Web UI API: 0 hash, 1 status mask, 2 name,
// 3 size, 4 progress permille, 9 download speed.
func (u *UTorrentClient) List() ([]Record, error) {
	var payload struct {
		Torrents [][]any `json:"torrents"`
	}
	if err := u.get(url.Values{"list": {"1"}}, &payload); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(payload.Torrents))
	for _, row := range payload.Torrents {
		if len(row) < 10 {
			continue
		}
		raw := map[string]any{
			"hash":           row[0],
			"status":         row[1],
			"name":           row[2],
			"progress":       row[4],
			"download_speed": row[9],
		}
		records = append(records, utorrentSpec.BuildRecord(raw))
	}
	return records, nil
}

func (u *UTorrentClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	// The Web UI API has no per-add download directory; the client's
	// configured default applies.
	query := url.Values{"action": {"add-url"}, "s": {magnetURI}}
	if err := u.get(query, nil); err != nil {
		return "", err
	}
	if hash, ok := utils.ExtractInfoHash(magnetURI); ok {
		return hash, nil
	}
	return "", fmt.Errorf("could not extract info-hash from magnet link")
}

func (u *UTorrentClient) action(name, id string) error {
	return u.get(url.Values{"action": {name}, "hash": {id}}, nil)
}

func (u *UTorrentClient) Start(id string) error  { return u.action("start", id) }
func (u *UTorrentClient) Stop(id string) error   { return u.action("stop", id) }
func (u *UTorrentClient) Pause(id string) error  { return u.action("pause", id) }
func (u *UTorrentClient) Remove(id string) error { return u.action("remove", id) }

func (u *UTorrentClient) Files(id string) ([]string, error) {
	var payload struct {
		Files []any `json:"files"`
	}
	if err := u.get(url.Values{"action": {"getfiles"}, "hash": {id}}, &payload); err != nil {
		return nil, err
	}
	// Response shape is ["<hash>", [[name, size, ...], ...]].
	if len(payload.Files) < 2 {
		return nil, nil
	}
	rows, ok := payload.Files[1].([]any)
	if !ok {
		return nil, nil
	}
	var files []string
	for _, row := range rows {
		if cols, ok := row.([]any); ok && len(cols) > 0 {
			if name, ok := toString(cols[0]); ok {
				files = append(files, name)
			}
		}
	}
	return files, nil
}
