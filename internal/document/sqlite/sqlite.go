// Package sqlite implements document.Repository on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/civitas-labs/legisync/internal/document"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	dip_id             TEXT PRIMARY KEY,
	titel              TEXT NOT NULL,
	dokumentart        TEXT NOT NULL DEFAULT '',
	drucksachetyp      TEXT NOT NULL DEFAULT '',
	datum              TEXT NOT NULL DEFAULT '',
	ressort            TEXT NOT NULL DEFAULT '',
	urheber            TEXT NOT NULL DEFAULT '[]',
	pdf_url            TEXT NOT NULL DEFAULT '',
	abstract           TEXT NOT NULL DEFAULT '',
	wahlperiode        INTEGER NOT NULL DEFAULT 0,
	dokumentnummer     TEXT NOT NULL DEFAULT '',
	summary            TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL DEFAULT '',
	vector_point_id    TEXT NOT NULL DEFAULT '',
	enriched           INTEGER NOT NULL DEFAULT 0,
	enriched_at        TEXT
);
CREATE INDEX IF NOT EXISTS idx_documents_datum ON documents(datum DESC);
CREATE INDEX IF NOT EXISTS idx_documents_ressort ON documents(ressort);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);
CREATE INDEX IF NOT EXISTS idx_documents_enriched ON documents(enriched);
`

// Store is a SQLite-backed document repository.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the database at path. Use
// ":memory:" for an in-memory store.
func NewStore(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

const dateLayout = time.RFC3339

func (s *Store) UpsertByDIPID(ctx context.Context, doc document.Document) (document.Document, error) {
	authors, err := json.Marshal(doc.Authors)
	if err != nil {
		return document.Document{}, fmt.Errorf("encoding authors: %w", err)
	}

	datum := ""
	if !doc.Date.IsZero() {
		datum = doc.Date.UTC().Format(dateLayout)
	}

	// Only registry-state columns are touched on conflict; AI columns
	// survive every sync pass.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (
			dip_id, titel, dokumentart, drucksachetyp, datum, ressort,
			urheber, pdf_url, abstract, wahlperiode, dokumentnummer
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dip_id) DO UPDATE SET
			titel = excluded.titel,
			dokumentart = excluded.dokumentart,
			drucksachetyp = excluded.drucksachetyp,
			datum = excluded.datum,
			ressort = excluded.ressort,
			urheber = excluded.urheber,
			pdf_url = excluded.pdf_url,
			abstract = excluded.abstract,
			wahlperiode = excluded.wahlperiode,
			dokumentnummer = excluded.dokumentnummer`,
		doc.DIPID, doc.Title, doc.DocumentKind, doc.DocumentType, datum,
		doc.Department, string(authors), doc.PDFURL, doc.Abstract,
		doc.LegislativePeriod, doc.DocumentNumber,
	)
	if err != nil {
		return document.Document{}, fmt.Errorf("upserting %s: %w", doc.DIPID, err)
	}

	stored, _, err := s.FindByDIPID(ctx, doc.DIPID)
	return stored, err
}

func (s *Store) FindUnenriched(ctx context.Context, limit int) ([]document.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+columns+`
		FROM documents
		WHERE enriched = 0 AND pdf_url <> ''
		ORDER BY datum DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (s *Store) UpdateEnrichment(ctx context.Context, dipID string, update document.EnrichmentUpdate) (document.Document, bool, error) {
	var sets []string
	var args []any

	if update.Summary != nil {
		sets = append(sets, "summary = ?")
		args = append(args, *update.Summary)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	if update.VectorPointID != nil {
		sets = append(sets, "vector_point_id = ?")
		args = append(args, *update.VectorPointID)
	}
	if update.Enriched != nil {
		sets = append(sets, "enriched = ?")
		args = append(args, boolToInt(*update.Enriched))
	}
	if update.EnrichedAt != nil {
		sets = append(sets, "enriched_at = ?")
		args = append(args, update.EnrichedAt.UTC().Format(dateLayout))
	}
	if len(sets) == 0 {
		return s.FindByDIPID(ctx, dipID)
	}

	args = append(args, dipID)
	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET "+strings.Join(sets, ", ")+" WHERE dip_id = ?", args...)
	if err != nil {
		return document.Document{}, false, fmt.Errorf("updating %s: %w", dipID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return document.Document{}, false, err
	}
	if n == 0 {
		return document.Document{}, false, nil
	}
	return s.FindByDIPID(ctx, dipID)
}

func (s *Store) FindByDIPID(ctx context.Context, dipID string) (document.Document, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+columns+" FROM documents WHERE dip_id = ?", dipID)
	doc, err := scanOne(row)
	if err == sql.ErrNoRows {
		return document.Document{}, false, nil
	}
	if err != nil {
		return document.Document{}, false, err
	}
	return doc, true, nil
}

func (s *Store) List(ctx context.Context, q document.ListQuery) ([]document.Document, int, error) {
	var conds []string
	var args []any

	if q.Department != "" {
		conds = append(conds, "ressort = ?")
		args = append(args, q.Department)
	}
	if q.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, q.Category)
	}
	if q.Search != "" {
		conds = append(conds, "(titel LIKE ? OR abstract LIKE ? OR dokumentnummer LIKE ?)")
		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if q.From != nil {
		conds = append(conds, "datum >= ?")
		args = append(args, q.From.UTC().Format(dateLayout))
	}
	if q.To != nil {
		conds = append(conds, "datum <= ?")
		args = append(args, q.To.UTC().Format(dateLayout))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol := "datum"
	if q.SortBy == "titel" {
		sortCol = "titel"
	}
	dir := "DESC"
	if q.SortAsc {
		dir = "ASC"
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	listArgs := append(args, limit, q.Offset)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+columns+" FROM documents"+where+
			" ORDER BY "+sortCol+" "+dir+" LIMIT ? OFFSET ?", listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	docs, err := scanAll(rows)
	return docs, total, err
}

func (s *Store) Departments(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "ressort")
}

func (s *Store) Categories(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "category")
}

func (s *Store) distinct(ctx context.Context, col string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT "+col+" FROM documents WHERE "+col+" <> '' ORDER BY "+col)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const columns = `dip_id, titel, dokumentart, drucksachetyp, datum, ressort,
	urheber, pdf_url, abstract, wahlperiode, dokumentnummer,
	summary, category, vector_point_id, enriched, enriched_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row scanner) (document.Document, error) {
	var doc document.Document
	var datum, authors string
	var enriched int
	var enrichedAt sql.NullString

	err := row.Scan(
		&doc.DIPID, &doc.Title, &doc.DocumentKind, &doc.DocumentType,
		&datum, &doc.Department, &authors, &doc.PDFURL, &doc.Abstract,
		&doc.LegislativePeriod, &doc.DocumentNumber,
		&doc.Summary, &doc.Category, &doc.VectorPointID, &enriched, &enrichedAt,
	)
	if err != nil {
		return document.Document{}, err
	}

	if datum != "" {
		if t, err := time.Parse(dateLayout, datum); err == nil {
			doc.Date = t
		}
	}
	if err := json.Unmarshal([]byte(authors), &doc.Authors); err != nil {
		doc.Authors = nil
	}
	doc.Enriched = enriched != 0
	if enrichedAt.Valid && enrichedAt.String != "" {
		if t, err := time.Parse(dateLayout, enrichedAt.String); err == nil {
			doc.EnrichedAt = &t
		}
	}
	return doc, nil
}

func scanAll(rows *sql.Rows) ([]document.Document, error) {
	var docs []document.Document
	for rows.Next() {
		doc, err := scanOne(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ document.Repository = (*Store)(nil)
