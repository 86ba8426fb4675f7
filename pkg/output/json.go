package output

import (
	"encoding/json"
	"io"

	"github.com/dfirlabs/evicopy/pkg/copier"
	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

// JSONFormatter renders results as indented JSON for automation
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string { return "json" }

// envelope wraps every document with its kind so consumers can
// dispatch without guessing from the fields.
type envelope struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

func (f *JSONFormatter) encode(w io.Writer, kind string, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{Kind: kind, Data: data})
}

// HashBatch renders a hash run
func (f *JSONFormatter) HashBatch(w io.Writer, result *hashing.BatchResult) error {
	return f.encode(w, "hash", result)
}

// Verification renders a verify run
func (f *JSONFormatter) Verification(w io.Writer, result *hashing.VerificationResult) error {
	return f.encode(w, "verify", result)
}

// Copy renders a copy run
func (f *JSONFormatter) Copy(w io.Writer, result *copier.Result) error {
	return f.encode(w, "copy", result)
}

// Storage renders a storage classification
func (f *JSONFormatter) Storage(w io.Writer, path string, info storage.Info) error {
	return f.encode(w, "storage", struct {
		Path string       `json:"path"`
		Info storage.Info `json:"info"`
	}{Path: path, Info: info})
}
