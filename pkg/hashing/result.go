package hashing

import "time"

// HashResult is the digest of a single file
type HashResult struct {
	// Path is the absolute path of the hashed file
	Path string `json:"path"`
	// RelativePath is the path relative to the batch root
	RelativePath string `json:"relative_path"`
	// Algorithm that produced the digest
	Algorithm Algorithm `json:"algorithm"`
	// Digest is the lowercase hex digest
	Digest string `json:"digest"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
	// Duration is how long hashing took
	Duration time.Duration `json:"duration"`
}

// Outcome classifies one file of a verification run
type Outcome string

const (
	// ExactMatch means both sides exist with identical digests
	ExactMatch Outcome = "exact_match"
	// Mismatch means both sides exist with different digests
	Mismatch Outcome = "mismatch"
	// MissingTarget means the file exists on the source side only
	MissingTarget Outcome = "missing_target"
	// MissingSource means the file exists on the target side only
	MissingSource Outcome = "missing_source"
	// HashError means a side exists but could not be hashed; the cause
	// is recorded in Errors. Never reported as missing.
	HashError Outcome = "error"
)

// FileComparison is the verdict for one relative path
type FileComparison struct {
	RelativePath string  `json:"relative_path"`
	Outcome      Outcome `json:"outcome"`
	SourceDigest string  `json:"source_digest,omitempty"`
	TargetDigest string  `json:"target_digest,omitempty"`
	Size         int64   `json:"size"`
}

// VerificationResult is the outcome of a bidirectional verification run
type VerificationResult struct {
	Algorithm     Algorithm        `json:"algorithm"`
	SourceRoot    string           `json:"source_root"`
	TargetRoot    string           `json:"target_root"`
	Comparisons   []FileComparison `json:"comparisons"`
	ExactMatches  int              `json:"exact_matches"`
	Mismatches    int              `json:"mismatches"`
	MissingTarget int              `json:"missing_target"`
	MissingSource int              `json:"missing_source"`
	Errored       int              `json:"errored"`
	Duration      time.Duration    `json:"duration"`
	// Errors maps relative paths to per-file hashing failures. A failed
	// file is excluded from the comparison counts.
	Errors map[string]string `json:"errors,omitempty"`
}

// Identical reports whether both trees matched exactly
func (r *VerificationResult) Identical() bool {
	return r.Mismatches == 0 && r.MissingTarget == 0 && r.MissingSource == 0 && len(r.Errors) == 0
}

// BatchResult is the outcome of hashing a batch of files
type BatchResult struct {
	Algorithm Algorithm     `json:"algorithm"`
	Results   []HashResult  `json:"results"`
	Duration  time.Duration `json:"duration"`
	// Errors maps paths to per-file failures; a failed file does not
	// abort the batch.
	Errors map[string]string `json:"errors,omitempty"`
}
