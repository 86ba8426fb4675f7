package output

import (
	"fmt"
	"io"

	"github.com/dfirlabs/evicopy/pkg/copier"
	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

// Formatter renders terminal results for one output format.
// Implementations include human-readable and JSON formatters.
type Formatter interface {
	// HashBatch renders the result of a hash run
	HashBatch(w io.Writer, result *hashing.BatchResult) error

	// Verification renders the result of a verify run
	Verification(w io.Writer, result *hashing.VerificationResult) error

	// Copy renders the result of a copy run
	Copy(w io.Writer, result *copier.Result) error

	// Storage renders a storage classification
	Storage(w io.Writer, path string, info storage.Info) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for a format name
func New(format string) (Formatter, error) {
	switch format {
	case "human", "":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: human, json)", format)
	}
}
