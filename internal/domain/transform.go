package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Transformer maps raw source records into canonical services. The public
// ports decide when derived URLs may omit the port segment.
type Transformer struct {
	httpPort  int
	httpsPort int
}

func NewTransformer(publicHTTPPort, publicHTTPSPort int) *Transformer {
	if publicHTTPPort <= 0 {
		publicHTTPPort = 80
	}
	if publicHTTPSPort <= 0 {
		publicHTTPSPort = 443
	}
	return &Transformer{httpPort: publicHTTPPort, httpsPort: publicHTTPSPort}
}

// Transform normalizes one raw record. The second return value is false
// when the record is soft-deleted and must not reach the snapshot.
// Disabled records are kept; filtering them is a presentation concern.
func (t *Transformer) Transform(raw RawRecord) (Service, bool) {
	if isDeleted(raw.DeletedAt) {
		return Service{}, false
	}

	id := CoerceID(raw.ID)
	if id == "" {
		switch {
		case raw.Name != "":
			id = raw.Name
		case raw.Host != "":
			id = raw.Host
		default:
			id = "unknown"
		}
	}

	name := raw.Name
	if name == "" {
		name = raw.Host
	}
	if name == "" {
		name = id
	}

	domains := canonicalDomains(raw.Domains)
	// Streams have no domain names; the listen port stands in as the
	// pseudo-domain so displays show ":3306" rather than an id fallback.
	if raw.Kind == KindStream && len(domains) == 0 && raw.IncomingPort > 0 {
		domains = []string{":" + strconv.Itoa(raw.IncomingPort)}
	}

	svc := Service{
		ID:        id,
		Kind:      raw.Kind,
		Name:      name,
		Remark:    raw.Remark,
		Host:      raw.Host,
		Path:      raw.Path,
		Enabled:   Boolify(raw.Enabled),
		SSLForced: Boolify(raw.SSLForced),
		Domains:   domains,
		Upstream:  upstreamFor(raw),
		HTTPURL:   buildURL("http", raw.Host, t.httpPort, raw.Path),
		HTTPSURL:  buildURL("https", raw.Host, t.httpsPort, raw.Path),
	}
	return svc, true
}

// canonicalDomains parses the raw domain field, canonicalizes each entry
// and deduplicates preserving first-seen order. The result is never nil so
// that the JSON projection stays stable.
func canonicalDomains(raw any) []string {
	parsed := ParseDomainList(raw)
	out := make([]string, 0, len(parsed))
	seen := make(map[string]struct{}, len(parsed))
	for _, d := range parsed {
		c := CanonicalizeDomain(d)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func isDeleted(marker any) bool {
	if marker == nil {
		return false
	}
	if s, ok := marker.(string); ok {
		return s != ""
	}
	return strings.TrimSpace(fmt.Sprint(marker)) != ""
}

// upstreamFor describes where traffic for this record ends up, in a
// kind-specific shape.
func upstreamFor(raw RawRecord) string {
	switch raw.Kind {
	case KindRedirect:
		target := raw.ForwardDomain
		if target == "" {
			target = raw.ForwardScheme
		}
		if target == "" {
			return "->"
		}
		return "-> " + target
	case KindStream:
		proto := raw.IncomingProtocol
		if proto == "" {
			proto = "tcp"
		}
		host := raw.ForwardHost
		if host == "" {
			host = "localhost"
		}
		if raw.ForwardPort > 0 {
			return proto + " -> " + host + ":" + strconv.Itoa(raw.ForwardPort)
		}
		return proto + " -> " + host
	default:
		scheme := raw.ForwardScheme
		if scheme == "" {
			scheme = "http"
		}
		host := raw.ForwardHost
		if host == "" {
			host = "localhost"
		}
		if raw.ForwardPort > 0 {
			return scheme + "://" + host + ":" + strconv.Itoa(raw.ForwardPort)
		}
		return scheme + "://" + host
	}
}

// buildURL derives "scheme://host[:port][/path]". The port segment is
// dropped when it is the scheme default or not provided; the path gains a
// leading slash when missing.
func buildURL(scheme, host string, port int, path string) string {
	h := safeHost(host)

	defaultPort := 80
	if scheme == "https" {
		defaultPort = 443
	}
	portPart := ""
	if port > 0 && port != defaultPort {
		portPart = ":" + strconv.Itoa(port)
	}

	pathPart := ""
	if path != "" {
		if strings.HasPrefix(path, "/") {
			pathPart = path
		} else {
			pathPart = "/" + path
		}
	}

	return scheme + "://" + h + portPart + pathPart
}

// safeHost strips an accidental scheme prefix or path from a host value.
func safeHost(host string) string {
	if host == "" {
		return ""
	}
	h := host
	for _, p := range []string{"http://", "https://"} {
		if strings.HasPrefix(h, p) {
			h = h[len(p):]
			break
		}
	}
	if i := strings.IndexByte(h, '/'); i != -1 {
		h = h[:i]
	}
	return h
}
