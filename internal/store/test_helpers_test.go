package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/rulegen/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBuild creates a build record with minimal required fields.
func createTestBuild(id, outDir string, count int) ir.Build {
	return ir.Build{
		ID:            id,
		OutDir:        outDir,
		Mode:          "aot",
		ArtifactCount: count,
	}
}

// createTestArtifact creates an artifact record written by buildID.
func createTestArtifact(logicalName, hash, buildID string) ir.ArtifactRecord {
	return ir.ArtifactRecord{
		LogicalName: logicalName,
		Kind:        ir.KindRule,
		Hash:        hash,
		BuildID:     buildID,
	}
}

// createTestComment creates a task comment with a fixed timestamp.
func createTestComment(taskID int64, author, text string) ir.TaskComment {
	return ir.TaskComment{
		TaskID:  taskID,
		Author:  author,
		Text:    text,
		AddedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}
