package main

import (
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
)

// A tiny fake indexer site for local end-to-end testing. It serves an
// HTML result listing shaped like the "thepiratebay" engine config, so
// pointing that engine's mirror at http://localhost:8085 exercises the
// whole search and match pipeline without touching a real site.

func main() {
	http.HandleFunc("/search/", searchHandler)
	http.HandleFunc("/torrent/", detailHandler)

	fmt.Println("Fake indexer starting on :8085")
	fmt.Println("Point the thepiratebay mirror at http://localhost:8085")
	log.Fatal(http.ListenAndServe(":8085", nil))
}

// fakeMagnet returns a deterministic-looking magnet for a release name.
func fakeMagnet(name string) string {
	hash := make([]byte, 0, 40)
	hexDigits := "0123456789abcdef"
	seed := 0
	for _, c := range name {
		seed += int(c)
	}
	r := rand.New(rand.NewSource(int64(seed)))
	for i := 0; i < 40; i++ {
		hash = append(hash, hexDigits[r.Intn(16)])
	}
	return fmt.Sprintf("magnet:?xt=urn:btih:%s&dn=%s", hash, strings.ReplaceAll(name, " ", "+"))
}

func searchHandler(w http.ResponseWriter, r *http.Request) {
	// Path shape: /search/{query}/1/{order}/0
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/search/"), "/")
	query := "unknown"
	if len(parts) > 0 && parts[0] != "" {
		query = parts[0]
	}
	base := strings.ReplaceAll(query, "%20", ".")
	base = strings.ReplaceAll(base, "+", ".")

	releases := []struct {
		name     string
		seeders  int
		leechers int
		size     string
	}{
		{base + ".720p.HDTV.x264-FAKE", 120, 30, "711.5 MiB"},
		{base + ".1080p.WEB.h264-FAKE", 85, 12, "1.4 GiB"},
		{base + ".480p.CAM-JUNK", 3, 1, "350 MiB"},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><table id=\"searchResult\">\n")
	fmt.Fprint(w, "<tr><th>Type</th><th>Name</th><th>SE</th><th>LE</th></tr>\n")
	for i, rel := range releases {
		fmt.Fprintf(w, `<tr>
  <td class="vertTh">Video</td>
  <td>
    <a class="detLink" href="/torrent/%d">%s</a>
    <a href="%s">magnet</a>
    <font class="detDesc">%s | ULed by fake</font>
  </td>
  <td>%d</td>
  <td>%d</td>
</tr>
`, i, rel.name, fakeMagnet(rel.name), rel.size, rel.seeders, rel.leechers)
	}
	fmt.Fprint(w, "</table></body></html>\n")
}

func detailHandler(w http.ResponseWriter, r *http.Request) {
	name := "Fake.Release.720p.HDTV.x264-FAKE"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><body>
<div class="detail">
  <h1>%s</h1>
  <a href="%s">Get this torrent</a>
</div>
</body></html>
`, name, fakeMagnet(name))
}
