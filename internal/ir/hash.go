package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainDocument = "pigeon/document/v1"
	DomainArtifact = "pigeon/artifact/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the content hash of the document.
// Two documents with the same declarations in the same order have the same
// fingerprint, whatever front end produced them.
func (d *Document) Fingerprint() (string, error) {
	canonical, err := MarshalCanonical(d)
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func (d *Document) MustFingerprint() string {
	fp, err := d.Fingerprint()
	if err != nil {
		panic(err)
	}
	return fp
}

// ArtifactHash returns the content hash of one generated file.
func ArtifactHash(path string, content []byte) string {
	data := make([]byte, 0, len(path)+1+len(content))
	data = append(data, path...)
	data = append(data, 0x00)
	data = append(data, content...)
	return hashWithDomain(DomainArtifact, data)
}
