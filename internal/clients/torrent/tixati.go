package torrent

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TixatiClient drives the Tixati web UI, which has no API: the transfer
// table is scraped from HTML and actions are posted as form submits.
// Fields the page does not show (download directory, per-file listing)
// degrade to their defaults.
type TixatiClient struct {
	host       string
	username   string
	password   string
	httpClient *http.Client
}

func NewTixatiClient(opts Options) *TixatiClient {
	return &TixatiClient{
		host:       strings.TrimRight(opts.Host, "/"),
		username:   opts.Username,
		password:   opts.Password,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (t *TixatiClient) Protocol() string { return "tixati" }

func (t *TixatiClient) fetch(path string) (*goquery.Document, error) {
	req, err := http.NewRequest("GET", t.host+path, nil)
	if err != nil {
		return nil, err
	}
	if t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tixati request %s failed with status: %s", path, resp.Status)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

func (t *TixatiClient) Ping() error {
	_, err := t.fetch("/home")
	return err
}

func (t *TixatiClient) List() ([]Record, error) {
	doc, err := t.fetch("/transfers")
	if err != nil {
		return nil, err
	}

	var records []Record
	doc.Find("table.xferslist > tbody > tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td:nth-child(2) a")
		name := strings.TrimSpace(link.Text())
		if name == "" {
			return
		}
		href, _ := link.Attr("href")
		// Detail links look like /transfers/<guid>/details.
		guid := ""
		if parts := strings.Split(strings.Trim(href, "/"), "/"); len(parts) >= 2 {
			guid = parts[1]
		}
		raw := map[string]any{
			"name":     name,
			"guid":     guid,
			"size":     strings.TrimSpace(row.Find("td:nth-child(3)").Text()),
			"progress": strings.TrimSuffix(strings.TrimSpace(row.Find("td:nth-child(4)").Text()), "%"),
			"status":   strings.TrimSpace(row.Find("td:nth-child(5)").Text()),
			"speed":    strings.TrimSpace(row.Find("td:nth-child(6)").Text()),
		}
		records = append(records, tixatiSpec.BuildRecord(raw))
	})
	return records, nil
}

func (t *TixatiClient) postForm(path string, data url.Values) error {
	req, err := http.NewRequest("POST", t.host+path, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	if t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tixati action failed with status: %s", resp.Status)
	}
	return nil
}

func (t *TixatiClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	data := url.Values{
		"addlinktext": {magnetURI},
		"addlink":     {"Add"},
	}
	if err := t.postForm("/transfers/action", data); err != nil {
		return "", err
	}
	// The UI assigns an internal guid; callers key on the magnet hash.
	return "", nil
}

func (t *TixatiClient) action(verb, id string) error {
	return t.postForm("/transfers/action", url.Values{
		verb:     {verb},
		"_" + id: {"1"},
	})
}

func (t *TixatiClient) Start(id string) error { return t.action("start", id) }
func (t *TixatiClient) Stop(id string) error  { return t.action("stop", id) }

// Pause aliases Stop; the UI has no distinct pause.
func (t *TixatiClient) Pause(id string) error  { return t.Stop(id) }
func (t *TixatiClient) Remove(id string) error { return t.action("deleteconf", id) }

func (t *TixatiClient) Files(id string) ([]string, error) {
	// No per-file listing on the transfers page; synthesize from the
	// transfer row.
	records, err := t.List()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Identifier == id {
			return rec.Files, nil
		}
	}
	return nil, fmt.Errorf("transfer %s not found", id)
}
