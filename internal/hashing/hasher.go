// Package hashing computes the stable fingerprints used for intake
// deduplication.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Kind selects the hashing strategy for a piece of raw content.
type Kind string

const (
	KindText       Kind = "text"
	KindURL        Kind = "url"
	KindStorageKey Kind = "storage_key"
)

// Hash returns a fixed-length hex digest for the payload under the given
// kind. Text is normalized first so whitespace-only differences collide;
// URLs are canonicalized before hashing.
//
// KindStorageKey is NOT a content hash: for binary content without stable
// bytes at intake time (audio awaiting transcription), the digest is derived
// from the storage location. Two uploads of the same audio under different
// keys produce different hashes and will not deduplicate.
func Hash(kind Kind, payload string) string {
	switch kind {
	case KindText:
		return digest(NormalizeText(payload))
	case KindURL:
		return digest(CanonicalURL(payload))
	default:
		return digest(payload)
	}
}

// TextHash is shorthand for Hash(KindText, text).
func TextHash(text string) string {
	return Hash(KindText, text)
}

// NormalizeText trims surrounding whitespace so content differing only in
// leading/trailing whitespace hashes identically.
func NormalizeText(text string) string {
	return strings.TrimSpace(text)
}

// CanonicalURL lowercases the scheme and host and strips the fragment and a
// trailing slash. Parse failures fall back to the trimmed raw string.
func CanonicalURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return trimmed
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	canonical := u.String()
	if strings.HasSuffix(u.Path, "/") && u.Path != "/" {
		canonical = strings.TrimSuffix(canonical, "/")
	}
	return canonical
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
