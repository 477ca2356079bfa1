// Package file reads host records from a static YAML file, for setups
// without a reachable proxy-manager database or API.
package file

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/proxydeck/internal/domain"
)

// hostEntry is one record in the YAML file. Fields that are dynamically
// typed at the source (id, flags, domain list) stay dynamic here; the
// transformer owns their coercion.
type hostEntry struct {
	ID          any    `yaml:"id"`
	Name        string `yaml:"name,omitempty"`
	Remark      string `yaml:"remark,omitempty"`
	Host        string `yaml:"host,omitempty"`
	Path        string `yaml:"path,omitempty"`
	Enabled     any    `yaml:"enabled"`
	SSLForced   any    `yaml:"ssl_forced,omitempty"`
	DomainNames any    `yaml:"domain_names,omitempty"`

	ForwardScheme string `yaml:"forward_scheme,omitempty"`
	ForwardHost   string `yaml:"forward_host,omitempty"`
	ForwardPort   int    `yaml:"forward_port,omitempty"`
	ForwardDomain string `yaml:"forward_domain_name,omitempty"`

	IncomingProtocol string `yaml:"incoming_protocol,omitempty"`
	IncomingPort     int    `yaml:"incoming_port,omitempty"`
}

type hostsFile struct {
	Proxies   []hostEntry `yaml:"proxies"`
	Redirects []hostEntry `yaml:"redirects"`
	Streams   []hostEntry `yaml:"streams"`
}

// Reader loads the YAML file on every fetch, so edits show up on the next
// poll without a restart.
type Reader struct {
	filePath string
}

func NewReader(filePath string) *Reader {
	return &Reader{filePath: filePath}
}

func (r *Reader) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read hosts file: %w", err)
	}

	var cfg hostsFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse hosts yaml: %w", err)
	}

	records := make([]domain.RawRecord, 0, len(cfg.Proxies)+len(cfg.Redirects)+len(cfg.Streams))
	for _, e := range cfg.Proxies {
		records = append(records, toRecord(domain.KindProxy, e))
	}
	for _, e := range cfg.Redirects {
		records = append(records, toRecord(domain.KindRedirect, e))
	}
	for _, e := range cfg.Streams {
		records = append(records, toRecord(domain.KindStream, e))
	}
	return records, nil
}

func toRecord(kind domain.Kind, e hostEntry) domain.RawRecord {
	return domain.RawRecord{
		Kind:             kind,
		ID:               e.ID,
		Name:             e.Name,
		Remark:           e.Remark,
		Host:             e.Host,
		Path:             e.Path,
		Enabled:          e.Enabled,
		SSLForced:        e.SSLForced,
		Domains:          e.DomainNames,
		ForwardScheme:    e.ForwardScheme,
		ForwardHost:      e.ForwardHost,
		ForwardPort:      e.ForwardPort,
		ForwardDomain:    e.ForwardDomain,
		IncomingProtocol: e.IncomingProtocol,
		IncomingPort:     e.IncomingPort,
	}
}
