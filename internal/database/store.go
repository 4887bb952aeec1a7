package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/satyagyan/internal/model"
)

// DefaultListLimit is the number of checks ListChecks returns when no
// limit is given.
const DefaultListLimit = 20

// Store persists fact-check reports.
type Store interface {
	// SaveCheck inserts the report, replacing any earlier row with the same ID.
	SaveCheck(ctx context.Context, report *model.FactCheckReport) error

	// GetCheck returns the report with the given ID, or ErrNotFound.
	GetCheck(ctx context.Context, id string) (*model.FactCheckReport, error)

	// FindByFingerprint returns the newest successful report for the
	// fingerprint that is younger than maxAge. It returns nil, nil when
	// there is none.
	FindByFingerprint(ctx context.Context, fingerprint string, maxAge time.Duration) (*model.FactCheckReport, error)

	// ListChecks returns summaries of recent checks, newest first.
	ListChecks(ctx context.Context, opts ListOptions) ([]CheckSummary, error)

	// VerdictCounts returns how many stored checks ended in each verdict.
	VerdictCounts(ctx context.Context) (map[model.Verdict]int, error)

	// DeleteCheck removes the check with the given ID, or returns ErrNotFound.
	DeleteCheck(ctx context.Context, id string) error

	// Close releases the connection.
	Close() error
}

// ListOptions filters ListChecks.
type ListOptions struct {
	// Limit caps the number of results. Zero means DefaultListLimit.
	Limit int

	// Verdict keeps only checks with this verdict when set.
	Verdict model.Verdict
}

// CheckSummary is a history row without the full report.
type CheckSummary struct {
	ID        string
	Kind      model.InputKind
	Label     string
	Verdict   model.Verdict
	CheckedAt time.Time

	// ErrorMessage is set when the check failed.
	ErrorMessage string
}

// OpenStore returns the PostgreSQL store when databaseURL is set and the
// SQLite store in dbDir otherwise.
func OpenStore(ctx context.Context, databaseURL, dbDir string) (Store, error) {
	if databaseURL != "" {
		ps, err := OpenPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return ps, nil
	}
	cdb, err := Open(dbDir, DefaultOptions())
	if err != nil {
		return nil, err
	}
	return cdb, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS checks (
	id TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	input_kind TEXT NOT NULL,
	label TEXT NOT NULL,
	verdict TEXT NOT NULL,
	checked_at %s NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	report_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_checks_fingerprint ON checks(fingerprint);
CREATE INDEX IF NOT EXISTS idx_checks_checked_at ON checks(checked_at);
CREATE INDEX IF NOT EXISTS idx_checks_verdict ON checks(verdict);
`

// sqlStore holds the queries shared by the SQLite and PostgreSQL stores.
type sqlStore struct {
	db *sql.DB

	// postgres switches placeholders to $n and passes timestamps as
	// time.Time instead of text.
	postgres bool
}

// sqliteTimeLayout is fixed width so that text comparison orders rows.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

func (s *sqlStore) bind(query string) string {
	if !s.postgres {
		return query
	}
	return rebind(query)
}

// rebind converts ? placeholders to PostgreSQL's $1, $2, ...
func rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) timeArg(t time.Time) any {
	if s.postgres {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func (s *sqlStore) createTables(ctx context.Context) error {
	columnType := "TEXT"
	if s.postgres {
		columnType = "TIMESTAMPTZ"
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(schema, columnType))
	return err
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// SaveCheck implements Store.
func (s *sqlStore) SaveCheck(ctx context.Context, report *model.FactCheckReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO checks (id, fingerprint, input_kind, label, verdict, checked_at, error_message, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		fingerprint = excluded.fingerprint,
		input_kind = excluded.input_kind,
		label = excluded.label,
		verdict = excluded.verdict,
		checked_at = excluded.checked_at,
		error_message = excluded.error_message,
		report_json = excluded.report_json
	`

	_, err = s.db.ExecContext(ctx, s.bind(query),
		report.ID,
		report.Fingerprint,
		string(report.Input.Kind),
		report.Input.Label(),
		string(report.Verdict),
		s.timeArg(report.CheckedAt),
		report.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save check: %w", err)
	}
	return nil
}

// GetCheck implements Store.
func (s *sqlStore) GetCheck(ctx context.Context, id string) (*model.FactCheckReport, error) {
	var reportJSON string
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT report_json FROM checks WHERE id = ?`), id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check: %w", err)
	}
	return decodeReport(reportJSON)
}

// FindByFingerprint implements Store.
func (s *sqlStore) FindByFingerprint(ctx context.Context, fingerprint string, maxAge time.Duration) (*model.FactCheckReport, error) {
	query := `
	SELECT report_json FROM checks
	WHERE fingerprint = ? AND error_message = '' AND checked_at > ?
	ORDER BY checked_at DESC
	LIMIT 1
	`

	var reportJSON string
	cutoff := time.Now().Add(-maxAge)
	err := s.db.QueryRowContext(ctx, s.bind(query), fingerprint, s.timeArg(cutoff)).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up fingerprint: %w", err)
	}
	return decodeReport(reportJSON)
}

// ListChecks implements Store.
func (s *sqlStore) ListChecks(ctx context.Context, opts ListOptions) ([]CheckSummary, error) {
	query := `
	SELECT id, input_kind, label, verdict, checked_at, error_message
	FROM checks
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if opts.Verdict != "" {
		query += " AND verdict = ?"
		args = append(args, string(opts.Verdict))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query += " ORDER BY checked_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list checks: %w", err)
	}
	defer rows.Close()

	var results []CheckSummary
	for rows.Next() {
		var (
			sum       CheckSummary
			kind      string
			verdict   string
			checkedAt any
		)
		if err := rows.Scan(&sum.ID, &kind, &sum.Label, &verdict, &checkedAt, &sum.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		sum.Kind = model.InputKind(kind)
		sum.Verdict = model.Verdict(verdict)
		sum.CheckedAt = timeValue(checkedAt)
		results = append(results, sum)
	}

	return results, rows.Err()
}

// VerdictCounts implements Store.
func (s *sqlStore) VerdictCounts(ctx context.Context) (map[model.Verdict]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT verdict, COUNT(*) FROM checks GROUP BY verdict`)
	if err != nil {
		return nil, fmt.Errorf("failed to count verdicts: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Verdict]int)
	for rows.Next() {
		var (
			verdict string
			n       int
		)
		if err := rows.Scan(&verdict, &n); err != nil {
			return nil, fmt.Errorf("failed to scan verdict count: %w", err)
		}
		counts[model.Verdict(verdict)] = n
	}
	return counts, rows.Err()
}

// DeleteCheck implements Store.
func (s *sqlStore) DeleteCheck(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM checks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete check: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete check: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func decodeReport(reportJSON string) (*model.FactCheckReport, error) {
	var report model.FactCheckReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	if report.ErrorMessage != "" {
		report.Error = errors.New(report.ErrorMessage)
	}
	return &report, nil
}

// timeValue converts a scanned timestamp column, which is time.Time from
// PostgreSQL and text from SQLite.
func timeValue(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTimestamp(t)
	case []byte:
		return parseTimestamp(string(t))
	default:
		return time.Time{}
	}
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",  // SQLite default datetime format (fractions are accepted)
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339,           // Full RFC3339 format
	time.RFC3339Nano,       // RFC3339 with nanoseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
