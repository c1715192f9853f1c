package ir

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainArtifact = "rulegen/artifact/v1"
	DomainSource   = "rulegen/source/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ArtifactHash computes the content hash of a generated artifact.
//
// The logical name and kind are part of the identity so that two artifacts
// with identical bodies at different paths never share a hash. Content is NFC
// normalized first: generated text embeds rule names copied from sources,
// and the same name typed on two systems must not churn the build cache.
func ArtifactHash(logicalName string, kind ArtifactKind, content []byte) string {
	buf := make([]byte, 0, len(logicalName)+len(kind)+len(content)+2)
	buf = append(buf, logicalName...)
	buf = append(buf, 0x00)
	buf = append(buf, kind...)
	buf = append(buf, 0x00)
	buf = append(buf, norm.NFC.Bytes(content)...)
	return hashWithDomain(DomainArtifact, buf)
}

// SourceHash computes the content hash of a loaded source artifact.
func SourceHash(src SourceArtifact) string {
	buf := make([]byte, 0, len(src.Location)+len(src.Content)+1)
	buf = append(buf, src.Location...)
	buf = append(buf, 0x00)
	buf = append(buf, src.Content...)
	return hashWithDomain(DomainSource, buf)
}

// ShortHash returns the first 8 hex characters of the hash of s.
// Used to disambiguate generated file names.
func ShortHash(s string) string {
	return hashWithDomain(DomainArtifact, norm.NFC.Bytes([]byte(s)))[:8]
}
