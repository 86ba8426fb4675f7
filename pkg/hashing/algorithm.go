package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
)

// Algorithm identifies a digest algorithm
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA1   Algorithm = "sha1"
	MD5    Algorithm = "md5"
)

// ParseAlgorithm parses an algorithm name
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case SHA256, SHA1, MD5:
		return Algorithm(s), nil
	default:
		return "", fmt.Errorf("unsupported algorithm %q (supported: sha256, sha1, md5)", s)
	}
}

// New returns a fresh hash.Hash for the algorithm
func (a Algorithm) New() hash.Hash {
	switch a {
	case SHA1:
		return sha1.New()
	case MD5:
		return md5.New()
	default:
		return sha256.New()
	}
}

// DigestSize returns the digest length in bytes
func (a Algorithm) DigestSize() int {
	switch a {
	case SHA1:
		return sha1.Size
	case MD5:
		return md5.Size
	default:
		return sha256.Size
	}
}

func (a Algorithm) String() string {
	return string(a)
}
