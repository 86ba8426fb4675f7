package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dfirlabs/evicopy/pkg/copier"
	"github.com/dfirlabs/evicopy/pkg/hashing"
)

// WriteHashCSV writes one row per digest, suitable for evidence logs
// and spreadsheet review.
func WriteHashCSV(w io.Writer, result *hashing.BatchResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"relative_path", "algorithm", "digest", "size_bytes"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, hr := range result.Results {
		row := []string{
			hr.RelativePath,
			hr.Algorithm.String(),
			hr.Digest,
			strconv.FormatInt(hr.Size, 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteVerificationCSV writes one row per compared file
func WriteVerificationCSV(w io.Writer, result *hashing.VerificationResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"relative_path", "outcome", "source_digest", "target_digest", "size_bytes"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, cmp := range result.Comparisons {
		row := []string{
			cmp.RelativePath,
			string(cmp.Outcome),
			cmp.SourceDigest,
			cmp.TargetDigest,
			strconv.FormatInt(cmp.Size, 10),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCopyCSV writes one row per copied file, with both digests so the
// chain of custody survives outside the tool.
func WriteCopyCSV(w io.Writer, result *copier.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"relative_path", "source_path", "dest_path", "size_bytes", "source_digest", "dest_digest", "verified"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range result.Files {
		row := []string{
			rec.RelativePath,
			rec.SourcePath,
			rec.DestPath,
			strconv.FormatInt(rec.Size, 10),
			rec.SourceDigest,
			rec.DestDigest,
			strconv.FormatBool(rec.Verified),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
