package torrent

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
)

// KTorrentClient drives KTorrent's web interface plugin: an XML feed
// for state plus GET actions. The plugin reports no download directory.
type KTorrentClient struct {
	host       string
	username   string
	password   string
	httpClient *http.Client
}

type ktorrentFeed struct {
	XMLName  xml.Name          `xml:"torrents"`
	Torrents []ktorrentTorrent `xml:"torrent"`
}

type ktorrentTorrent struct {
	Name         string `xml:"name"`
	InfoHash     string `xml:"info_hash"`
	Status       string `xml:"status"`
	Percentage   string `xml:"percentage"`
	DownloadRate string `xml:"download_rate"`
}

func NewKTorrentClient(opts Options) *KTorrentClient {
	jar, _ := cookiejar.New(nil)
	return &KTorrentClient{
		host:       strings.TrimRight(opts.Host, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Jar: jar, Timeout: defaultTimeout},
	}
}

func (k *KTorrentClient) Protocol() string { return "ktorrent" }

func (k *KTorrentClient) login() error {
	data := url.Values{
		"username": {k.username},
		"password": {k.password},
		"Login":    {"Sign in"},
	}
	resp, err := k.httpClient.PostForm(k.host+"/login?page=interface.html", data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ktorrent login failed with status: %s", resp.Status)
	}
	return nil
}

func (k *KTorrentClient) get(path string) (*http.Response, error) {
	resp, err := k.httpClient.Get(k.host + path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("ktorrent request %s failed with status: %s", path, resp.Status)
	}
	return resp, nil
}

func (k *KTorrentClient) Ping() error {
	return k.login()
}

func (k *KTorrentClient) List() ([]Record, error) {
	resp, err := k.get("/data/torrents.xml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var feed ktorrentFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to decode ktorrent feed: %w", err)
	}

	records := make([]Record, 0, len(feed.Torrents))
	for _, t := range feed.Torrents {
		raw := map[string]any{
			"name":          t.Name,
			"info_hash":     t.InfoHash,
			"status":        t.Status,
			"percentage":    strings.TrimSuffix(strings.TrimSpace(t.Percentage), "%"),
			"download_rate": t.DownloadRate,
		}
		records = append(records, ktorrentSpec.BuildRecord(raw))
	}
	return records, nil
}

func (k *KTorrentClient) action(query string) error {
	resp, err := k.get("/action?" + query)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (k *KTorrentClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	// The plugin loads into KTorrent's configured directory only.
	if err := k.action("load_torrent=" + url.QueryEscape(magnetURI)); err != nil {
		return "", err
	}
	return "", nil
}

func (k *KTorrentClient) Start(id string) error {
	return k.action("start=" + url.QueryEscape(id))
}

func (k *KTorrentClient) Stop(id string) error {
	return k.action("stop=" + url.QueryEscape(id))
}

// Pause aliases Stop; the plugin exposes start/stop only.
func (k *KTorrentClient) Pause(id string) error { return k.Stop(id) }

func (k *KTorrentClient) Remove(id string) error {
	return k.action("remove=" + url.QueryEscape(id))
}

func (k *KTorrentClient) Files(id string) ([]string, error) {
	// No per-file feed; degrade to the torrent name.
	records, err := k.List()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Identifier == id {
			return rec.Files, nil
		}
	}
	return nil, fmt.Errorf("torrent %s not found", id)
}
