// Package view projects a snapshot into its display-ready form: enabled
// entries only, display names resolved, text escaped for HTML embedding.
// Pure functions over their inputs; the cache stays the only owner of
// snapshot state.
package view

import (
	"strings"

	"github.com/MrSnakeDoc/proxydeck/internal/domain"
)

// Link is one clickable domain of an entry.
type Link struct {
	Host string `json:"host"`
	URL  string `json:"url"`
}

// Item is the display form of one enabled service.
type Item struct {
	Kind        domain.Kind `json:"kind"`
	ID          string      `json:"id"`
	DisplayName string      `json:"display_name"`
	SSLForced   bool        `json:"ssl_forced"`
	Domains     []string    `json:"domains"`
	Links       []Link      `json:"links"`
	Upstream    string      `json:"upstream"`
	EditURL     string      `json:"edit_url"`
}

// Model groups items per kind. Redirects and streams are empty unless
// their include flags are set.
type Model struct {
	Proxies         []Item `json:"proxies"`
	Redirects       []Item `json:"redirects"`
	Streams         []Item `json:"streams"`
	SnapshotVersion string `json:"snapshot_version"`
	TitlesVersion   uint64 `json:"titles_version"`
}

// Options configures a single Build call. Nil funcs are valid and mean
// "no overrides" / "no admin links".
type Options struct {
	IncludeRedirects bool
	IncludeStreams   bool
	AdminURL         func(kind domain.Kind, id string) string
	TitleOverride    func(id string) (string, bool)
	TitlesVersion    uint64
}

// Build produces the view model for a snapshot. Disabled entries never
// appear in the output.
func Build(snap *domain.Snapshot, opts Options) Model {
	m := Model{
		Proxies:         []Item{},
		Redirects:       []Item{},
		Streams:         []Item{},
		SnapshotVersion: snap.Version,
		TitlesVersion:   opts.TitlesVersion,
	}

	for _, svc := range snap.Services {
		if !svc.Enabled {
			continue
		}
		switch svc.Kind {
		case domain.KindRedirect:
			if opts.IncludeRedirects {
				m.Redirects = append(m.Redirects, toItem(svc, opts))
			}
		case domain.KindStream:
			if opts.IncludeStreams {
				m.Streams = append(m.Streams, toItem(svc, opts))
			}
		default:
			m.Proxies = append(m.Proxies, toItem(svc, opts))
		}
	}
	return m
}

func toItem(svc domain.Service, opts Options) Item {
	scheme := "http"
	if svc.SSLForced {
		scheme = "https"
	}

	links := []Link{}
	if svc.Kind != domain.KindStream {
		for _, d := range svc.Domains {
			links = append(links, Link{Host: d, URL: scheme + "://" + d})
		}
	}

	editURL := ""
	if opts.AdminURL != nil {
		editURL = opts.AdminURL(svc.Kind, svc.ID)
	}

	return Item{
		Kind:        svc.Kind,
		ID:          svc.ID,
		DisplayName: displayName(svc, opts.TitleOverride),
		SSLForced:   svc.SSLForced,
		Domains:     svc.Domains,
		Links:       links,
		Upstream:    svc.Upstream,
		EditURL:     editURL,
	}
}

// displayName resolves the name shown for an entry, by priority: the
// user's override, then the record's remark, then its first domain, then
// an id-prefixed fallback. The result is HTML-escaped.
func displayName(svc domain.Service, override func(id string) (string, bool)) string {
	chosen := ""
	if override != nil {
		if o, ok := override(svc.ID); ok {
			chosen = strings.TrimSpace(o)
		}
	}
	if chosen == "" {
		chosen = strings.TrimSpace(svc.Remark)
	}
	if chosen == "" && len(svc.Domains) > 0 {
		chosen = strings.TrimSpace(svc.Domains[0])
	}
	if chosen == "" {
		chosen = "#" + svc.ID
	}
	return EscapeHTML(chosen)
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML escapes the five HTML-special characters. User-supplied text
// must pass through here before it is embedded in any HTML context.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
