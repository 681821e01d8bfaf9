package torrent

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
)

// RTorrentClient speaks rTorrent's XML-RPC interface (usually exposed
// through an SCGI-to-HTTP bridge such as ruTorrent's RPC plugin). The
// call surface is three methods, so the XML-RPC envelope is built and
// parsed here rather than pulling in a client library.
type RTorrentClient struct {
	host       string
	httpClient *http.Client
}

func NewRTorrentClient(opts Options) *RTorrentClient {
	return &RTorrentClient{
		host:       strings.TrimRight(opts.Host, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (r *RTorrentClient) Protocol() string { return "rtorrent" }

type xmlrpcValue struct {
	Str   *string      `xml:"string"`
	I4    *int64       `xml:"i4"`
	I8    *int64       `xml:"i8"`
	Array *xmlrpcArray `xml:"array"`
	Chars string       `xml:",chardata"`
}

type xmlrpcArray struct {
	Values []xmlrpcValue `xml:"data>value"`
}

type xmlrpcResponse struct {
	XMLName xml.Name      `xml:"methodResponse"`
	Params  []xmlrpcValue `xml:"params>param>value"`
	Fault   *xmlrpcValue  `xml:"fault>value"`
}

func (v xmlrpcValue) toAny() any {
	switch {
	case v.Str != nil:
		return *v.Str
	case v.I8 != nil:
		return *v.I8
	case v.I4 != nil:
		return *v.I4
	case v.Array != nil:
		out := make([]any, 0, len(v.Array.Values))
		for _, item := range v.Array.Values {
			out = append(out, item.toAny())
		}
		return out
	}
	// Untyped <value> content is a string per the XML-RPC spec.
	return strings.TrimSpace(v.Chars)
}

func (r *RTorrentClient) call(method string, params ...string) (any, error) {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\"?><methodCall><methodName>")
	xml.EscapeText(&buf, []byte(method))
	buf.WriteString("</methodName><params>")
	for _, p := range params {
		buf.WriteString("<param><value><string>")
		xml.EscapeText(&buf, []byte(p))
		buf.WriteString("</string></value></param>")
	}
	buf.WriteString("</params></methodCall>")

	req, err := http.NewRequest("POST", r.host, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rtorrent request failed with status: %s", resp.Status)
	}

	var parsed xmlrpcResponse
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rtorrent response: %w", err)
	}
	if parsed.Fault != nil {
		return nil, fmt.Errorf("rtorrent fault for method %q: %v", method, parsed.Fault.toAny())
	}
	if len(parsed.Params) == 0 {
		return nil, nil
	}
	return parsed.Params[0].toAny(), nil
}

func (r *RTorrentClient) Ping() error {
	_, err := r.call("system.client_version")
	return err
}

func (r *RTorrentClient) List() ([]Record, error) {
	result, err := r.call("d.multicall2", "", "main",
		"d.name=", "d.hash=", "d.bytes_done=", "d.size_bytes=",
		"d.down.rate=", "d.directory=", "d.state=")
	if err != nil {
		return nil, err
	}

	rows, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected rtorrent multicall shape")
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		cols, ok := row.([]any)
		if !ok || len(cols) < 7 {
			continue
		}
		raw := map[string]any{
			"name":       cols[0],
			"hash":       cols[1],
			"bytes_done": cols[2],
			"size_bytes": cols[3],
			"down_rate":  cols[4],
			"directory":  cols[5],
			"state":      cols[6],
		}
		records = append(records, rtorrentSpec.BuildRecord(raw))
	}
	return records, nil
}

func (r *RTorrentClient) AddMagnet(magnetURI, downloadDir, label string) (string, error) {
	params := []string{"", magnetURI}
	if downloadDir != "" {
		params = append(params, fmt.Sprintf("d.directory.set=%q", downloadDir))
	}
	if label != "" {
		params = append(params, fmt.Sprintf("d.custom1.set=%s", label))
	}
	if _, err := r.call("load.start", params...); err != nil {
		return "", err
	}
	// load.start returns nothing useful; the identifier is the magnet's
	// own hash, which the caller already extracts.
	return "", nil
}

func (r *RTorrentClient) Start(id string) error {
	_, err := r.call("d.start", id)
	return err
}

func (r *RTorrentClient) Stop(id string) error {
	_, err := r.call("d.stop", id)
	return err
}

func (r *RTorrentClient) Pause(id string) error {
	_, err := r.call("d.pause", id)
	return err
}

func (r *RTorrentClient) Remove(id string) error {
	_, err := r.call("d.erase", id)
	return err
}

func (r *RTorrentClient) Files(id string) ([]string, error) {
	result, err := r.call("f.multicall", id, "", "f.path=")
	if err != nil {
		return nil, err
	}
	rows, ok := result.([]any)
	if !ok {
		return nil, nil
	}
	var files []string
	for _, row := range rows {
		if cols, ok := row.([]any); ok && len(cols) > 0 {
			if path, ok := toString(cols[0]); ok && path != "" {
				files = append(files, path)
			}
		}
	}
	return files, nil
}
