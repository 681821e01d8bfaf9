package search

// Site configs for the supported indexers. Mirrors can be overridden
// per site from the config file; everything else is fixed here.

var siteConfigs = []EngineConfig{
	{
		Name:        "thepiratebay",
		Mirror:      "https://thepiratebay10.info",
		SearchPath:  "/search/{query}/1/{order}/0",
		RowSelector: "table#searchResult tr:has(td.vertTh)",
		Fields: map[string]Extraction{
			"name":     {Selector: "a.detLink"},
			"detail":   {Selector: "a.detLink", Attr: "href"},
			"magnet":   {Selector: "td a[href^='magnet:']", Attr: "href"},
			"seeders":  {Selector: "td:nth-child(3)"},
			"leechers": {Selector: "td:nth-child(4)"},
			"size":     {Selector: "font.detDesc", Transform: "cut-at-pipe"},
		},
		Orderings: map[string]string{
			"seeders.desc": "99", "seeders.asc": "8",
			"size.desc": "5", "size.asc": "6",
			"date.desc": "3", "date.asc": "4",
		},
		RelativeLinks: true,
	},
	{
		Name:        "1337x",
		Mirror:      "https://1337x.to",
		SearchPath:  "/sort-search/{query}/{order}/1/",
		RowSelector: "table.table-list tbody tr",
		Fields: map[string]Extraction{
			"name":     {Selector: "td.name a:nth-child(2)"},
			"detail":   {Selector: "td.name a:nth-child(2)", Attr: "href"},
			"seeders":  {Selector: "td.seeds"},
			"leechers": {Selector: "td.leeches"},
			"size":     {Selector: "td.size", Transform: "cut-at-newline"},
		},
		Orderings: map[string]string{
			"seeders.desc": "seeders/desc", "seeders.asc": "seeders/asc",
			"size.desc": "size/desc", "size.asc": "size/asc",
			"date.desc": "time/desc", "date.asc": "time/asc",
		},
		RelativeLinks: true,
		DetailScope:   "div.torrent-detail-page",
		DetailFields: map[string]Extraction{
			"magnet":  {Selector: "a[href^='magnet:']", Attr: "href"},
			"torrent": {Selector: "a[href$='.torrent']", Attr: "href"},
		},
	},
	{
		Name:        "torrentgalaxy",
		Mirror:      "https://torrentgalaxy.to",
		SearchPath:  "/torrents.php?search={query}&{order}",
		RowSelector: "div.tgxtablerow",
		Fields: map[string]Extraction{
			"name":     {Selector: "div.tgxtablecell a.txlight", Attr: "title"},
			"detail":   {Selector: "div.tgxtablecell a.txlight", Attr: "href"},
			"magnet":   {Selector: "a[href^='magnet:']", Attr: "href"},
			"torrent":  {Selector: "a[href*='/get/']", Attr: "href"},
			"seeders":  {Selector: "span[title='Seeders/Leechers'] font b"},
			"leechers": {Selector: "span[title='Seeders/Leechers'] font:nth-child(2)"},
			"size":     {Selector: "span.badge-secondary"},
		},
		Orderings: map[string]string{
			"seeders.desc": "sort=seeders&order=desc", "seeders.asc": "sort=seeders&order=asc",
			"size.desc": "sort=size&order=desc", "size.asc": "sort=size&order=asc",
			"date.desc": "sort=id&order=desc", "date.asc": "sort=id&order=asc",
		},
		RelativeLinks: true,
	},
	{
		Name:        "limetorrents",
		Mirror:      "https://www.limetorrents.lol",
		SearchPath:  "/search/all/{query}/{order}/1/",
		RowSelector: "table.table2 tr:has(td.tdleft)",
		Fields: map[string]Extraction{
			"name":     {Selector: "div.tt-name a:nth-child(2)"},
			"detail":   {Selector: "div.tt-name a:nth-child(2)", Attr: "href"},
			"torrent":  {Selector: "div.tt-name a.csprite_dl14", Attr: "href"},
			"seeders":  {Selector: "td.tdseed"},
			"leechers": {Selector: "td.tdleech"},
			"size":     {Selector: "td:nth-child(3)"},
		},
		Orderings: map[string]string{
			"seeders.desc": "seeds", "date.desc": "date", "size.desc": "size",
		},
		RelativeLinks: true,
	},
	{
		Name:        "eztv",
		Mirror:      "https://eztvx.to",
		SearchPath:  "/search/{query}",
		RowSelector: "table tr.forum_header_border",
		Fields: map[string]Extraction{
			"name":    {Selector: "td.forum_thread_post a.epinfo"},
			"detail":  {Selector: "td.forum_thread_post a.epinfo", Attr: "href"},
			"magnet":  {Selector: "a.magnet", Attr: "href"},
			"torrent": {Selector: "a.download_1", Attr: "href"},
			"seeders": {Selector: "td.forum_thread_post_end font"},
			"size":    {Selector: "td:nth-child(4)"},
		},
		Orderings:     map[string]string{},
		RelativeLinks: true,
	},
	{
		Name:        "nyaa",
		Mirror:      "https://nyaa.si",
		SearchPath:  "/?f=0&c=0_0&q={query}&{order}",
		RowSelector: "table.torrent-list tbody tr",
		Fields: map[string]Extraction{
			"name":     {Selector: "td:nth-child(2) a:not(.comments)"},
			"detail":   {Selector: "td:nth-child(2) a:not(.comments)", Attr: "href"},
			"torrent":  {Selector: "td:nth-child(3) a[href$='.torrent']", Attr: "href"},
			"magnet":   {Selector: "td:nth-child(3) a[href^='magnet:']", Attr: "href"},
			"size":     {Selector: "td:nth-child(4)"},
			"seeders":  {Selector: "td:nth-child(6)"},
			"leechers": {Selector: "td:nth-child(7)"},
		},
		Orderings: map[string]string{
			"seeders.desc": "s=seeders&o=desc", "seeders.asc": "s=seeders&o=asc",
			"size.desc": "s=size&o=desc", "size.asc": "s=size&o=asc",
			"date.desc": "s=id&o=desc", "date.asc": "s=id&o=asc",
		},
		RelativeLinks: true,
	},
	{
		Name:        "torlock",
		Mirror:      "https://www.torlock.com",
		SearchPath:  "/all/torrents/{query}.html?sort={order}",
		RowSelector: "table.table-striped tbody tr",
		Fields: map[string]Extraction{
			"name":     {Selector: "td div a b"},
			"detail":   {Selector: "td div a", Attr: "href"},
			"size":     {Selector: "td:nth-child(3)"},
			"seeders":  {Selector: "td:nth-child(4)"},
			"leechers": {Selector: "td:nth-child(5)"},
		},
		Orderings: map[string]string{
			"seeders.desc": "seeds", "size.desc": "size", "date.desc": "added",
		},
		RelativeLinks: true,
		DetailFields: map[string]Extraction{
			"magnet":  {Selector: "a[href^='magnet:']", Attr: "href"},
			"torrent": {Selector: "a[href^='/tor/']", Attr: "href"},
		},
	},
	{
		Name:        "kickass",
		Mirror:      "https://kickasstorrents.to",
		SearchPath:  "/usearch/{query}/?sortby={order}",
		RowSelector: "table.data tr:has(div.torrentname)",
		Fields: map[string]Extraction{
			"name":   {Selector: "a.cellMainLink"},
			"detail": {Selector: "a.cellMainLink", Attr: "href"},
			// Current mirrors wrap the magnet in an exit-page redirect;
			// the transform passes plain magnets through untouched.
			"magnet":   {Selector: "a[title='Torrent magnet link'], a[href^='magnet:']", Attr: "href", Transform: "unwrap-redirect"},
			"size":     {Selector: "td.nobr"},
			"seeders":  {Selector: "td.green"},
			"leechers": {Selector: "td.red"},
		},
		Orderings: map[string]string{
			"seeders.desc": "seeders&sorder=desc", "seeders.asc": "seeders&sorder=asc",
			"size.desc": "size&sorder=desc", "date.desc": "time_add&sorder=desc",
		},
		RelativeLinks: true,
	},
	{
		Name:        "magnetdl",
		Mirror:      "https://www.magnetdl.com",
		SearchPath:  "/search/?q={query}&m=1&{order}",
		RowSelector: "table.download tbody tr:has(td.n)",
		Fields: map[string]Extraction{
			"name":     {Selector: "td.n a", Attr: "title"},
			"detail":   {Selector: "td.n a", Attr: "href"},
			"magnet":   {Selector: "td.m a", Attr: "href"},
			"size":     {Selector: "td:nth-child(6)"},
			"seeders":  {Selector: "td.s"},
			"leechers": {Selector: "td.l"},
		},
		Orderings: map[string]string{
			"seeders.desc": "o=se", "size.desc": "o=si", "date.desc": "o=a",
		},
		RelativeLinks: true,
	},
	{
		Name:        "glodls",
		Mirror:      "https://glodls.to",
		SearchPath:  "/search_results.php?search={query}&{order}&inclusive=1",
		RowSelector: "table.ttable_headinner tr.t-row",
		Fields: map[string]Extraction{
			"name":     {Selector: "td:nth-child(2) a[title]", Attr: "title"},
			"detail":   {Selector: "td:nth-child(2) a[title]", Attr: "href"},
			"torrent":  {Selector: "td:nth-child(3) a", Attr: "href"},
			"magnet":   {Selector: "td:nth-child(4) a", Attr: "href"},
			"size":     {Selector: "td:nth-child(5)"},
			"seeders":  {Selector: "td:nth-child(6) b"},
			"leechers": {Selector: "td:nth-child(7) b"},
		},
		Orderings: map[string]string{
			"seeders.desc": "sort=seeders&order=desc", "size.desc": "sort=size&order=desc",
			"date.desc": "sort=id&order=desc",
		},
		RelativeLinks: true,
	},
	{
		Name:        "bitsearch",
		Mirror:      "https://bitsearch.to",
		SearchPath:  "/search?q={query}&sort={order}",
		RowSelector: "li.search-result",
		Fields: map[string]Extraction{
			"name":     {Selector: "h5.title a"},
			"detail":   {Selector: "h5.title a", Attr: "href"},
			"magnet":   {Selector: "a.dl-magnet", Attr: "href"},
			"torrent":  {Selector: "a.dl-torrent", Attr: "href"},
			"size":     {Selector: "div.stats div:nth-child(2)"},
			"seeders":  {Selector: "div.stats div:nth-child(3) font"},
			"leechers": {Selector: "div.stats div:nth-child(4) font"},
		},
		Orderings: map[string]string{
			"seeders.desc": "seeders", "size.desc": "size", "date.desc": "date",
		},
		RelativeLinks: true,
	},
	{
		Name:        "solidtorrents",
		Mirror:      "https://solidtorrents.to",
		SearchPath:  "/search?q={query}&sort={order}",
		RowSelector: "li.search-result",
		Fields: map[string]Extraction{
			"name":     {Selector: "h5.title a"},
			"detail":   {Selector: "h5.title a", Attr: "href"},
			"magnet":   {Selector: "a.dl-magnet", Attr: "href"},
			"size":     {Selector: "div.stats div:nth-child(2)"},
			"seeders":  {Selector: "div.stats div:nth-child(3) font.text-success"},
			"leechers": {Selector: "div.stats div:nth-child(4) font.text-danger"},
		},
		Orderings: map[string]string{
			"seeders.desc": "seeders", "size.desc": "size", "date.desc": "date",
		},
		RelativeLinks: true,
		// Listing rows drop the magnet button on some layouts; the
		// detail page always shows the bare info hash.
		DetailFields: map[string]Extraction{
			"magnet": {Selector: "div.info-hash", Transform: "hash-to-magnet"},
		},
	},
	{
		Name:        "yourbittorrent",
		Mirror:      "https://yourbittorrent.com",
		SearchPath:  "/?q={query}&sort={order}",
		RowSelector: "div.card-body table tr:has(td.desktop-only)",
		Fields: map[string]Extraction{
			"name":     {Selector: "td:nth-child(2) a"},
			"detail":   {Selector: "td:nth-child(2) a", Attr: "href"},
			"size":     {Selector: "td:nth-child(3)"},
			"seeders":  {Selector: "td:nth-child(5)"},
			"leechers": {Selector: "td:nth-child(6)"},
		},
		Orderings: map[string]string{
			"seeders.desc": "seeders", "size.desc": "size", "date.desc": "date",
		},
		RelativeLinks: true,
		DetailFields: map[string]Extraction{
			"torrent": {Selector: "a[href$='.torrent']", Attr: "href"},
			"magnet":  {Selector: "a[href^='magnet:']", Attr: "href"},
		},
	},
	{
		Name:        "torrentdownloads",
		Mirror:      "https://www.torrentdownloads.pro",
		SearchPath:  "/search/?search={query}&{order}",
		RowSelector: "div.inner_container div.grey_bar3:has(p a)",
		Fields: map[string]Extraction{
			"name":     {Selector: "p a"},
			"detail":   {Selector: "p a", Attr: "href"},
			"size":     {Selector: "span:nth-child(3)"},
			"leechers": {Selector: "span:nth-child(1)"},
			"seeders":  {Selector: "span:nth-child(2)"},
		},
		Orderings: map[string]string{
			"seeders.desc": "srt=seeds&pp=50&order=desc",
			"size.desc":    "srt=size&pp=50&order=desc",
			"date.desc":    "srt=added&pp=50&order=desc",
		},
		RelativeLinks: true,
		DetailFields: map[string]Extraction{
			"magnet": {Selector: "a[href^='magnet:']", Attr: "href"},
		},
	},
}
