package domain

import (
	"reflect"
	"testing"
)

func TestTransformProxyRecord(t *testing.T) {
	tr := NewTransformer(80, 443)

	svc, ok := tr.Transform(RawRecord{
		Kind:      KindProxy,
		ID:        float64(1),
		Remark:    "one",
		Enabled:   float64(1),
		SSLForced: float64(0),
		DeletedAt: nil,
		Domains:   `["Example.com","WWW.Test.org "]`,
	})
	if !ok {
		t.Fatal("Transform() excluded a live record")
	}

	if svc.ID != "1" {
		t.Errorf("ID = %q, want 1", svc.ID)
	}
	if svc.Remark != "one" {
		t.Errorf("Remark = %q, want one", svc.Remark)
	}
	if !svc.Enabled {
		t.Error("Enabled = false, want true")
	}
	if svc.SSLForced {
		t.Error("SSLForced = true, want false")
	}
	want := []string{"example.com", "www.test.org"}
	if !reflect.DeepEqual(svc.Domains, want) {
		t.Errorf("Domains = %v, want %v", svc.Domains, want)
	}
}

func TestTransformExcludesDeleted(t *testing.T) {
	tr := NewTransformer(80, 443)

	tests := []struct {
		name      string
		deletedAt any
		wantKept  bool
	}{
		{"nil marker", nil, true},
		{"empty string marker", "", true},
		{"timestamp marker", "2024-01-02 03:04:05", false},
		{"numeric marker", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tr.Transform(RawRecord{
				Kind:      KindProxy,
				ID:        1,
				Enabled:   1,
				DeletedAt: tt.deletedAt,
			})
			if ok != tt.wantKept {
				t.Errorf("Transform() kept = %v, want %v", ok, tt.wantKept)
			}
		})
	}
}

func TestTransformKeepsDisabledRecords(t *testing.T) {
	tr := NewTransformer(80, 443)

	svc, ok := tr.Transform(RawRecord{Kind: KindProxy, ID: 1, Enabled: 0})
	if !ok {
		t.Fatal("Transform() excluded a disabled record; only deleted records are excluded")
	}
	if svc.Enabled {
		t.Error("Enabled = true, want false")
	}
}

func TestTransformIDFallback(t *testing.T) {
	tr := NewTransformer(80, 443)

	tests := []struct {
		name string
		raw  RawRecord
		want string
	}{
		{"explicit id", RawRecord{ID: 7, Name: "svc", Host: "h.com"}, "7"},
		{"name fallback", RawRecord{Name: "svc", Host: "h.com"}, "svc"},
		{"host fallback", RawRecord{Host: "h.com"}, "h.com"},
		{"unknown fallback", RawRecord{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := tr.Transform(tt.raw)
			if svc.ID != tt.want {
				t.Errorf("ID = %q, want %q", svc.ID, tt.want)
			}
		})
	}
}

func TestTransformDerivedURLs(t *testing.T) {
	tests := []struct {
		name      string
		httpPort  int
		httpsPort int
		host      string
		path      string
		wantHTTP  string
		wantHTTPS string
	}{
		{"custom ports with path", 8080, 8443, "example.com", "/app", "http://example.com:8080/app", "https://example.com:8443/app"},
		{"default ports omitted", 80, 443, "example.com", "", "http://example.com", "https://example.com"},
		{"path without slash", 80, 443, "example.com", "app", "http://example.com/app", "https://example.com/app"},
		{"host with scheme", 80, 443, "https://example.com/x", "", "http://example.com", "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransformer(tt.httpPort, tt.httpsPort)
			svc, _ := tr.Transform(RawRecord{Kind: KindProxy, ID: 1, Host: tt.host, Path: tt.path})
			if svc.HTTPURL != tt.wantHTTP {
				t.Errorf("HTTPURL = %q, want %q", svc.HTTPURL, tt.wantHTTP)
			}
			if svc.HTTPSURL != tt.wantHTTPS {
				t.Errorf("HTTPSURL = %q, want %q", svc.HTTPSURL, tt.wantHTTPS)
			}
		})
	}
}

func TestTransformUpstreamPerKind(t *testing.T) {
	tr := NewTransformer(80, 443)

	tests := []struct {
		name string
		raw  RawRecord
		want string
	}{
		{"proxy", RawRecord{Kind: KindProxy, ID: 1, ForwardScheme: "https", ForwardHost: "10.0.0.2", ForwardPort: 8096}, "https://10.0.0.2:8096"},
		{"proxy defaults", RawRecord{Kind: KindProxy, ID: 1}, "http://localhost"},
		{"redirect with target", RawRecord{Kind: KindRedirect, ID: 1, ForwardDomain: "new.example.com"}, "-> new.example.com"},
		{"redirect scheme fallback", RawRecord{Kind: KindRedirect, ID: 1, ForwardScheme: "https"}, "-> https"},
		{"redirect bare", RawRecord{Kind: KindRedirect, ID: 1}, "->"},
		{"stream", RawRecord{Kind: KindStream, ID: 1, IncomingProtocol: "udp", ForwardHost: "10.0.0.3", ForwardPort: 514}, "udp -> 10.0.0.3:514"},
		{"stream defaults", RawRecord{Kind: KindStream, ID: 1}, "tcp -> localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := tr.Transform(tt.raw)
			if svc.Upstream != tt.want {
				t.Errorf("Upstream = %q, want %q", svc.Upstream, tt.want)
			}
		})
	}
}

func TestTransformStreamListenPortDomain(t *testing.T) {
	tr := NewTransformer(80, 443)

	svc, _ := tr.Transform(RawRecord{
		Kind:         KindStream,
		ID:           4,
		Enabled:      1,
		IncomingPort: 3306,
		ForwardHost:  "10.0.0.5",
		ForwardPort:  3306,
	})
	if !reflect.DeepEqual(svc.Domains, []string{":3306"}) {
		t.Errorf("Domains = %v, want [:3306]", svc.Domains)
	}

	// No listen port: nothing to stand in, the list stays empty.
	svc, _ = tr.Transform(RawRecord{Kind: KindStream, ID: 5, Enabled: 1})
	if len(svc.Domains) != 0 {
		t.Errorf("Domains = %v, want empty without a listen port", svc.Domains)
	}
}

func TestTransformDeduplicatesDomains(t *testing.T) {
	tr := NewTransformer(80, 443)

	svc, _ := tr.Transform(RawRecord{
		Kind:    KindProxy,
		ID:      1,
		Enabled: 1,
		Domains: []any{"B.example.com", "https://b.example.com/x", "a.example.com", "b.example.com"},
	})

	want := []string{"b.example.com", "a.example.com"}
	if !reflect.DeepEqual(svc.Domains, want) {
		t.Errorf("Domains = %v, want %v (deduplicated, first-seen order)", svc.Domains, want)
	}
}
