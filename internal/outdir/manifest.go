package outdir

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the build manifest written at the output root.
const ManifestFile = ".rulegen-manifest.yaml"

// Manifest describes the artifacts of the last build written to a directory.
type Manifest struct {
	Build     string          `yaml:"build"`
	Seq       int64           `yaml:"seq"`
	Mode      string          `yaml:"mode"`
	Generator string          `yaml:"generator"`
	Artifacts []ManifestEntry `yaml:"artifacts"`
}

// ManifestEntry is one artifact of a build. Build names the build that last
// wrote the file, which differs from Manifest.Build for files an
// incremental build left untouched.
type ManifestEntry struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Hash  string `yaml:"hash"`
	Build string `yaml:"build"`
}

// ReadManifest loads the manifest under root. A missing manifest yields an
// error satisfying errors.Is(err, fs.ErrNotExist).
func ReadManifest(root string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, ManifestFile))
	if err != nil {
		return nil, err
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	return &m, nil
}

// writeManifest replaces the manifest under root.
func writeManifest(root string, m *Manifest) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return atomicWriteFile(filepath.Join(root, ManifestFile), buf.Bytes(), 0o644)
}
