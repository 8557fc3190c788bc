package store

import (
	"context"
	"fmt"

	"github.com/xiaowei-guan/pigeon/internal/ir"
)

// RunKind names what produced a run.
type RunKind string

const (
	RunGenerate RunKind = "generate"
	RunTest     RunKind = "test"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusOK      RunStatus = "ok"
	StatusFailed  RunStatus = "failed"
)

// Run is one ledger entry.
type Run struct {
	ID               string    `json:"id"`
	Seq              int64     `json:"seq"`
	Kind             RunKind   `json:"kind"`
	Label            string    `json:"label"`
	Fingerprint      string    `json:"fingerprint"`
	Prefix           string    `json:"prefix"`
	GeneratorVersion string    `json:"generator_version"`
	Status           RunStatus `json:"status"`
	Error            string    `json:"error,omitempty"`
}

// Artifact is one generated file of a run.
type Artifact struct {
	RunID   string `json:"run_id"`
	Backend string `json:"backend"`
	Path    string `json:"path"`
	Hash    string `json:"hash"`
	Size    int64  `json:"size"`
}

// Message is one channel exchange observed during a run.
type Message struct {
	RunID   string
	Seq     int64
	Channel string
	Request []byte
	Reply   []byte
	Error   string
}

// PutDocument stores the canonical form of doc and returns its fingerprint.
// Storing the same document twice is a no-op.
func (s *Store) PutDocument(ctx context.Context, doc *ir.Document) (string, error) {
	body, err := marshalDocument(doc)
	if err != nil {
		return "", fmt.Errorf("put document: %w", err)
	}
	fp, err := doc.Fingerprint()
	if err != nil {
		return "", fmt.Errorf("put document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (fingerprint, body)
		VALUES (?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, fp, body)
	if err != nil {
		return "", fmt.Errorf("put document: %w", err)
	}
	return fp, nil
}

// BeginRun records the start of a run against doc and returns it with ID,
// Seq, Fingerprint, GeneratorVersion and Status filled in. An ID already
// set on run is kept.
func (s *Store) BeginRun(ctx context.Context, doc *ir.Document, run Run) (Run, error) {
	fp, err := s.PutDocument(ctx, doc)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}

	if run.ID == "" {
		run.ID = s.ids.Generate()
	}
	run.Fingerprint = fp
	run.GeneratorVersion = ir.GeneratorVersion
	run.Status = StatusRunning
	run.Error = ""

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		return Run{}, fmt.Errorf("begin run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, kind, label, fingerprint, prefix, generator_version, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		string(run.Kind),
		run.Label,
		run.Fingerprint,
		run.Prefix,
		run.GeneratorVersion,
		string(run.Status),
		run.Error,
	)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("begin run: commit: %w", err)
	}
	return run, nil
}

// FinishRun marks a running run ok, or failed with runErr's text.
func (s *Store) FinishRun(ctx context.Context, id string, runErr error) error {
	status := StatusOK
	if runErr != nil {
		status = StatusFailed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?
		WHERE id = ? AND status = ?
	`, string(status), errorText(runErr), id, string(StatusRunning))
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: no running run %q", id)
	}
	return nil
}

// WriteArtifact records a generated file. Hash and Size are computed from
// content when Hash is empty.
func (s *Store) WriteArtifact(ctx context.Context, a Artifact, content []byte) error {
	if a.Hash == "" {
		a.Hash = ir.ArtifactHash(a.Path, content)
		a.Size = int64(len(content))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (run_id, backend, path, hash, size)
		VALUES (?, ?, ?, ?, ?)
	`, a.RunID, a.Backend, a.Path, a.Hash, a.Size)
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// WriteMessage records one channel exchange. Writing the same (RunID, Seq)
// twice keeps the first.
func (s *Store) WriteMessage(ctx context.Context, m Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (run_id, seq, channel, request, reply, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, m.RunID, m.Seq, m.Channel, m.Request, m.Reply, m.Error)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
