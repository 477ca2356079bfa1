package domain

import "time"

// Kind identifies which proxy-manager table/endpoint a record came from.
// It is supplied by the data source, never inferred from field presence.
type Kind string

const (
	KindProxy    Kind = "proxy"
	KindRedirect Kind = "redirect"
	KindStream   Kind = "stream"
)

// RawRecord is one row/object as handed over by a data source, before
// normalization. Ambiguously typed source fields (id, enabled flags, the
// domain list) stay dynamic here; decoding them is the transformer's job
// and is total — malformed values degrade to defaults, never to errors.
type RawRecord struct {
	Kind Kind

	ID        any
	Name      string
	Remark    string
	Host      string
	Path      string
	Enabled   any
	SSLForced any

	// DeletedAt carries the soft-delete marker when the source exposes one.
	// A non-empty value excludes the record from the snapshot entirely.
	DeletedAt any

	// Domains is the raw domain-list field: a real list, a JSON-encoded
	// string, a delimiter-separated string, a single object, or absent.
	Domains any

	// Proxy upstream.
	ForwardScheme string
	ForwardHost   string
	ForwardPort   int

	// Redirect target.
	ForwardDomain string

	// Stream upstream.
	IncomingProtocol string
	IncomingPort     int
}

// Service is the canonical, comparable form of one host entry.
//
// Two services are equal for change-detection purposes iff their JSON
// encodings are byte-identical; every field therefore has a defined
// default and no field is ever omitted for one kind but present for
// another.
type Service struct {
	ID        string   `json:"id"`
	Kind      Kind     `json:"kind"`
	Name      string   `json:"name"`
	Remark    string   `json:"remark"`
	Host      string   `json:"host"`
	Path      string   `json:"path"`
	Enabled   bool     `json:"enabled"`
	SSLForced bool     `json:"ssl_forced"`
	Domains   []string `json:"domains"`
	Upstream  string   `json:"upstream"`
	HTTPURL   string   `json:"http_url"`
	HTTPSURL  string   `json:"https_url"`
}

// Meta echoes immutable configuration back to snapshot readers.
type Meta struct {
	PageTitle       string `json:"page_title"`
	PollIntervalMs  int64  `json:"poll_interval_ms"`
	PublicHTTPPort  int    `json:"public_http_port"`
	PublicHTTPSPort int    `json:"public_https_port"`
}

// Snapshot is the single published view of all known services.
// It is immutable once published; the cache replaces it wholesale
// and consumers must not mutate it.
type Snapshot struct {
	Version   string     `json:"version"`
	UpdatedAt *time.Time `json:"updated_at"`
	Services  []Service  `json:"services"`
	Meta      Meta       `json:"meta"`
}
