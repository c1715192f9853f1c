package ir

import "time"

// NOTE: These are store-layer records, not part of the codegen model.

// Build records one generation written to an output directory.
type Build struct {
	ID            string `json:"id"` // BuildIDGenerator output
	OutDir        string `json:"out_dir"`
	Mode          string `json:"mode"`
	ArtifactCount int    `json:"artifact_count"`
	Seq           int64  `json:"seq"` // per out_dir logical clock, assigned by the store
}

// ArtifactRecord is the cached state of one written artifact.
type ArtifactRecord struct {
	OutDir      string       `json:"out_dir"`
	LogicalName string       `json:"logical_name"`
	Kind        ArtifactKind `json:"kind"`
	Hash        string       `json:"hash"`
	BuildID     string       `json:"build_id"` // build that last wrote the file
}

// TaskComment is a comment attached to a workflow task.
type TaskComment struct {
	ID      int64     `json:"id"` // Auto-increment, assigned on insert
	TaskID  int64     `json:"task_id"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	AddedAt time.Time `json:"added_at"`
}
