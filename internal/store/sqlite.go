// Package store persists glossaries and usage records in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgallion1/subtrans/internal/translate"
)

// Store is a SQLite-backed glossary and usage store.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS glossary (
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_text TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (source_lang, target_lang, source_text)
	);

	CREATE TABLE IF NOT EXISTS usage (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		engine TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		chars_to_translate INTEGER NOT NULL DEFAULT 0,
		translated_chars INTEGER NOT NULL DEFAULT 0,
		glossary_hits INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadGlossary returns the stored glossary for a language pair. An unknown
// pair yields an empty glossary.
func (s *Store) LoadGlossary(ctx context.Context, source, target string) (*translate.Glossary, error) {
	g := translate.NewGlossary(source, target)
	src, tgt := g.Pair()

	rows, err := s.db.QueryContext(ctx,
		"SELECT source_text, translated_text FROM glossary WHERE source_lang = ? AND target_lang = ?",
		src, tgt)
	if err != nil {
		return nil, fmt.Errorf("query glossary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var text, tr string
		if err := rows.Scan(&text, &tr); err != nil {
			return nil, fmt.Errorf("scan glossary: %w", err)
		}
		g.Put(text, tr)
	}
	return g, rows.Err()
}

// SaveGlossary upserts every entry of g under its language pair.
func (s *Store) SaveGlossary(ctx context.Context, g *translate.Glossary) error {
	src, tgt := g.Pair()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO glossary (source_lang, target_lang, source_text, translated_text, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_lang, target_lang, source_text)
		DO UPDATE SET translated_text = excluded.translated_text, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for text, tr := range g.Entries() {
		if _, err := stmt.ExecContext(ctx, src, tgt, text, tr, now); err != nil {
			return fmt.Errorf("upsert glossary entry: %w", err)
		}
	}
	return tx.Commit()
}

// GlossarySize counts stored entries for a language pair.
func (s *Store) GlossarySize(ctx context.Context, source, target string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM glossary WHERE source_lang = ? AND target_lang = ?",
		strings.ToLower(source), strings.ToLower(target)).Scan(&n)
	return n, err
}

// PurgeGlossary deletes every entry for a language pair and returns how many
// were removed.
func (s *Store) PurgeGlossary(ctx context.Context, source, target string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM glossary WHERE source_lang = ? AND target_lang = ?",
		strings.ToLower(source), strings.ToLower(target))
	if err != nil {
		return 0, fmt.Errorf("purge glossary: %w", err)
	}
	return res.RowsAffected()
}

// Usage is the accounting record of one translation run.
type Usage struct {
	JobID            string        `json:"job_id"`
	Engine           string        `json:"engine"`
	SourceLang       string        `json:"source_lang"`
	TargetLang       string        `json:"target_lang"`
	CharsToTranslate int           `json:"chars_to_translate"`
	TranslatedChars  int           `json:"translated_chars"`
	GlossaryHits     int           `json:"glossary_hits"`
	Duration         time.Duration `json:"duration"`
}

// RecordUsage appends a usage record.
func (s *Store) RecordUsage(ctx context.Context, u Usage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage (job_id, engine, source_lang, target_lang, chars_to_translate, translated_chars, glossary_hits, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.JobID, u.Engine, u.SourceLang, u.TargetLang, u.CharsToTranslate, u.TranslatedChars, u.GlossaryHits, u.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// UsageTotal is the sum of translated characters for one engine.
type UsageTotal struct {
	Engine          string `json:"engine"`
	Runs            int    `json:"runs"`
	TranslatedChars int64  `json:"translated_chars"`
	GlossaryHits    int64  `json:"glossary_hits"`
}

// UsageTotals aggregates usage per engine since the given time.
func (s *Store) UsageTotals(ctx context.Context, since time.Time) ([]UsageTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT engine, COUNT(*), COALESCE(SUM(translated_chars), 0), COALESCE(SUM(glossary_hits), 0)
		FROM usage WHERE created_at >= ? GROUP BY engine ORDER BY engine`,
		since.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var out []UsageTotal
	for rows.Next() {
		var t UsageTotal
		if err := rows.Scan(&t.Engine, &t.Runs, &t.TranslatedChars, &t.GlossaryHits); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
