package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// ErrNotFound is returned by single-row reads that match nothing.
var ErrNotFound = errors.New("not found")

// ReadDocument returns the document stored under fingerprint.
func (s *Store) ReadDocument(ctx context.Context, fingerprint string) (*ir.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM documents WHERE fingerprint = ?
	`, fingerprint).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read document %s: %w", fingerprint, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return unmarshalDocument(body)
}

// ReadRun retrieves a single run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, kind, label, fingerprint, prefix, generator_version, status, error
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns
// every run.
//
// Returns an empty slice (not nil) if the ledger is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, kind, label, fingerprint, prefix, generator_version, status, error
		FROM runs
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadArtifacts returns the files of a run ordered by backend name.
func (s *Store) ReadArtifacts(ctx context.Context, runID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, backend, path, hash, size
		FROM artifacts
		WHERE run_id = ?
		ORDER BY backend COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.RunID, &a.Backend, &a.Path, &a.Hash, &a.Size); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// LatestArtifact returns the artifact most recently recorded for path by a
// successful run. ok is false if path was never generated.
func (s *Store) LatestArtifact(ctx context.Context, path string) (a Artifact, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT a.run_id, a.backend, a.path, a.hash, a.size
		FROM artifacts a
		JOIN runs r ON r.id = a.run_id
		WHERE a.path = ? AND r.status = ?
		ORDER BY r.seq DESC
		LIMIT 1
	`, path, string(StatusOK)).Scan(&a.RunID, &a.Backend, &a.Path, &a.Hash, &a.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, fmt.Errorf("latest artifact: %w", err)
	}
	return a, true, nil
}

// ReadMessages returns the exchanges of a run in sequence order.
func (s *Store) ReadMessages(ctx context.Context, runID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, channel, request, reply, error
		FROM messages
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.RunID, &m.Seq, &m.Channel, &m.Request, &m.Reply, &m.Error); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run    Run
		kind   string
		status string
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&kind,
		&run.Label,
		&run.Fingerprint,
		&run.Prefix,
		&run.GeneratorVersion,
		&status,
		&run.Error,
	)
	if err != nil {
		return Run{}, err
	}
	run.Kind = RunKind(kind)
	run.Status = RunStatus(status)
	return run, nil
}
