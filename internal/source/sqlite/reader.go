// Package sqlite reads host records straight out of the proxy manager's
// SQLite database. Access is read-only and a fresh connection is opened
// and closed for every fetch, so a poll never pins the database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/MrSnakeDoc/proxydeck/internal/domain"
	"github.com/MrSnakeDoc/proxydeck/internal/utils"
)

type Reader struct {
	dbPath string
}

func NewReader(dbPath string) (*Reader, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite reader requires a database path")
	}
	return &Reader{dbPath: dbPath}, nil
}

// Fetch reads every host table that exists. Schema differences between
// proxy-manager versions (a missing deleted_at column, absent stream
// table) degrade to fewer records, never to an error for the whole fetch.
func (r *Reader) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	db, err := sql.Open("sqlite", "file:"+r.dbPath+"?mode=ro&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer utils.Close(db)

	db.SetMaxOpenConns(1)

	var records []domain.RawRecord

	if tableExists(ctx, db, "proxy_host") {
		rows, err := r.readProxyHosts(ctx, db)
		if err != nil {
			return nil, err
		}
		records = append(records, rows...)
	}
	if tableExists(ctx, db, "redirection_host") {
		rows, err := r.readRedirectionHosts(ctx, db)
		if err != nil {
			return nil, err
		}
		records = append(records, rows...)
	}
	if tableExists(ctx, db, "stream") {
		rows, err := r.readStreams(ctx, db)
		if err != nil {
			return nil, err
		}
		records = append(records, rows...)
	}

	if records == nil {
		records = []domain.RawRecord{}
	}
	return records, nil
}

func (r *Reader) readProxyHosts(ctx context.Context, db *sql.DB) ([]domain.RawRecord, error) {
	cols := []string{"id", "domain_names", "forward_scheme", "forward_host", "forward_port", "ssl_forced", "enabled"}
	optional := map[string]bool{
		"remark":     tableHasColumn(ctx, db, "proxy_host", "remark"),
		"deleted_at": tableHasColumn(ctx, db, "proxy_host", "deleted_at"),
	}

	query := buildSelect("proxy_host", cols, optional)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query proxy_host: %w", err)
	}
	defer utils.Close(rows)

	var out []domain.RawRecord
	for rows.Next() {
		var (
			id, domains, sslForced, enabled, remark, deletedAt any
			scheme, host                                       sql.NullString
			port                                               sql.NullInt64
		)
		dest := []any{&id, &domains, &scheme, &host, &port, &sslForced, &enabled}
		if optional["remark"] {
			dest = append(dest, &remark)
		}
		if optional["deleted_at"] {
			dest = append(dest, &deletedAt)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan proxy_host row: %w", err)
		}
		out = append(out, domain.RawRecord{
			Kind:          domain.KindProxy,
			ID:            id,
			Remark:        stringOf(remark),
			Enabled:       enabled,
			SSLForced:     sslForced,
			DeletedAt:     deletedAt,
			Domains:       domains,
			ForwardScheme: scheme.String,
			ForwardHost:   host.String,
			ForwardPort:   int(port.Int64),
		})
	}
	return out, rows.Err()
}

func (r *Reader) readRedirectionHosts(ctx context.Context, db *sql.DB) ([]domain.RawRecord, error) {
	cols := []string{"id", "domain_names", "forward_domain_name", "ssl_forced", "enabled"}
	optional := map[string]bool{
		"remark":     tableHasColumn(ctx, db, "redirection_host", "remark"),
		"deleted_at": tableHasColumn(ctx, db, "redirection_host", "deleted_at"),
	}

	query := buildSelect("redirection_host", cols, optional)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query redirection_host: %w", err)
	}
	defer utils.Close(rows)

	var out []domain.RawRecord
	for rows.Next() {
		var (
			id, domains, sslForced, enabled, remark, deletedAt any
			target                                             sql.NullString
		)
		dest := []any{&id, &domains, &target, &sslForced, &enabled}
		if optional["remark"] {
			dest = append(dest, &remark)
		}
		if optional["deleted_at"] {
			dest = append(dest, &deletedAt)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan redirection_host row: %w", err)
		}
		out = append(out, domain.RawRecord{
			Kind:          domain.KindRedirect,
			ID:            id,
			Remark:        stringOf(remark),
			Enabled:       enabled,
			SSLForced:     sslForced,
			DeletedAt:     deletedAt,
			Domains:       domains,
			ForwardDomain: target.String,
		})
	}
	return out, rows.Err()
}

func (r *Reader) readStreams(ctx context.Context, db *sql.DB) ([]domain.RawRecord, error) {
	cols := []string{"id", "incoming_port", "forwarding_host", "forwarding_port", "enabled"}
	optional := map[string]bool{
		"tcp_forwarding": tableHasColumn(ctx, db, "stream", "tcp_forwarding"),
		"deleted_at":     tableHasColumn(ctx, db, "stream", "deleted_at"),
	}

	query := buildSelect("stream", cols, optional)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stream: %w", err)
	}
	defer utils.Close(rows)

	var out []domain.RawRecord
	for rows.Next() {
		var (
			id, enabled, tcpForwarding, deletedAt any
			incomingPort, forwardingPort          sql.NullInt64
			forwardingHost                        sql.NullString
		)
		dest := []any{&id, &incomingPort, &forwardingHost, &forwardingPort, &enabled}
		if optional["tcp_forwarding"] {
			dest = append(dest, &tcpForwarding)
		}
		if optional["deleted_at"] {
			dest = append(dest, &deletedAt)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan stream row: %w", err)
		}
		protocol := "tcp"
		if optional["tcp_forwarding"] && !domain.Boolify(tcpForwarding) {
			protocol = "udp"
		}
		out = append(out, domain.RawRecord{
			Kind:             domain.KindStream,
			ID:               id,
			Enabled:          enabled,
			DeletedAt:        deletedAt,
			ForwardHost:      forwardingHost.String,
			ForwardPort:      int(forwardingPort.Int64),
			IncomingProtocol: protocol,
			IncomingPort:     int(incomingPort.Int64),
		})
	}
	return out, rows.Err()
}

func buildSelect(table string, cols []string, optional map[string]bool) string {
	// Order must match the scan destinations in the callers.
	for _, c := range []string{"remark", "tcp_forwarding", "deleted_at"} {
		if optional[c] {
			cols = append(cols, c)
		}
	}
	query := "SELECT "
	for i, c := range cols {
		if i > 0 {
			query += ", "
		}
		query += c
	}
	return query + " FROM " + table
}

func tableExists(ctx context.Context, db *sql.DB, table string) bool {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&name)
	return err == nil && name == table
}

func tableHasColumn(ctx context.Context, db *sql.DB, table, column string) bool {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return false
	}
	defer utils.Close(rows)

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}

func stringOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return ""
}
