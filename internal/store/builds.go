package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rulegen/internal/ir"
)

// RecordBuild stores a build and replaces the artifact records of its
// output directory with artifacts, in one transaction. The build's Seq is
// assigned here as one more than the highest seq recorded for the directory
// and returned.
func (s *Store) RecordBuild(ctx context.Context, build ir.Build, artifacts []ir.ArtifactRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("record build: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var seq int64
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM builds WHERE out_dir = ?
	`, build.OutDir).Scan(&seq); err != nil {
		return 0, fmt.Errorf("record build: next seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO builds (id, out_dir, mode, artifact_count, seq)
		VALUES (?, ?, ?, ?, ?)
	`,
		build.ID,
		build.OutDir,
		build.Mode,
		build.ArtifactCount,
		seq,
	); err != nil {
		return 0, fmt.Errorf("record build: insert build: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM artifacts WHERE out_dir = ?`, build.OutDir); err != nil {
		return 0, fmt.Errorf("record build: clear artifacts: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artifacts (out_dir, logical_name, kind, hash, build_id)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("record build: prepare artifacts: %w", err)
	}
	defer stmt.Close()

	for _, a := range artifacts {
		if _, err := stmt.ExecContext(ctx, build.OutDir, a.LogicalName, string(a.Kind), a.Hash, a.BuildID); err != nil {
			return 0, fmt.Errorf("record build: insert artifact %s: %w", a.LogicalName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record build: commit: %w", err)
	}

	return seq, nil
}

// LatestBuild returns the most recent build recorded for outDir.
// Returns ErrNotFound when the directory has no builds.
func (s *Store) LatestBuild(ctx context.Context, outDir string) (ir.Build, error) {
	var b ir.Build
	err := s.db.QueryRowContext(ctx, `
		SELECT id, out_dir, mode, artifact_count, seq
		FROM builds
		WHERE out_dir = ?
		ORDER BY seq DESC
		LIMIT 1
	`, outDir).Scan(&b.ID, &b.OutDir, &b.Mode, &b.ArtifactCount, &b.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Build{}, fmt.Errorf("latest build for %s: %w", outDir, ErrNotFound)
	}
	if err != nil {
		return ir.Build{}, fmt.Errorf("latest build: %w", err)
	}
	return b, nil
}

// ReadBuilds returns every build recorded for outDir, ordered by seq ASC.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ReadBuilds(ctx context.Context, outDir string) ([]ir.Build, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, out_dir, mode, artifact_count, seq
		FROM builds
		WHERE out_dir = ?
		ORDER BY seq ASC
	`, outDir)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []ir.Build{}
	for rows.Next() {
		var b ir.Build
		if err := rows.Scan(&b.ID, &b.OutDir, &b.Mode, &b.ArtifactCount, &b.Seq); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// ReadArtifacts returns the cached artifact records of outDir, ordered by
// logical name. Returns an empty slice (not nil) when there are none.
func (s *Store) ReadArtifacts(ctx context.Context, outDir string) ([]ir.ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT out_dir, logical_name, kind, hash, build_id
		FROM artifacts
		WHERE out_dir = ?
		ORDER BY logical_name COLLATE BINARY ASC
	`, outDir)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	records := []ir.ArtifactRecord{}
	for rows.Next() {
		var (
			r    ir.ArtifactRecord
			kind string
		)
		if err := rows.Scan(&r.OutDir, &r.LogicalName, &kind, &r.Hash, &r.BuildID); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		r.Kind = ir.ArtifactKind(kind)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return records, nil
}
