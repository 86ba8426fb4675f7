package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dfirlabs/evicopy/pkg/copier"
	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/storage"
)

// HumanFormatter formats results for people reading a terminal
type HumanFormatter struct{}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string { return "human" }

// HashBatch renders one line per digest plus a summary
func (f *HumanFormatter) HashBatch(w io.Writer, result *hashing.BatchResult) error {
	for _, hr := range result.Results {
		fmt.Fprintf(w, "%s  %s\n", hr.Digest, hr.RelativePath)
	}

	var total int64
	for _, hr := range result.Results {
		total += hr.Size
	}

	fmt.Fprintf(w, "\nHashed %d files (%s) with %s in %s\n",
		len(result.Results), humanize.IBytes(uint64(total)),
		result.Algorithm, result.Duration.Round(time.Millisecond))

	return f.printErrors(w, result.Errors)
}

// Verification renders per-file verdicts and the verdict counts
func (f *HumanFormatter) Verification(w io.Writer, result *hashing.VerificationResult) error {
	for _, cmp := range result.Comparisons {
		switch cmp.Outcome {
		case hashing.ExactMatch:
			fmt.Fprintf(w, "  ok        %s\n", cmp.RelativePath)
		case hashing.Mismatch:
			fmt.Fprintf(w, "  MISMATCH  %s\n    source: %s\n    target: %s\n",
				cmp.RelativePath, cmp.SourceDigest, cmp.TargetDigest)
		case hashing.MissingTarget:
			fmt.Fprintf(w, "  MISSING   %s (not on target)\n", cmp.RelativePath)
		case hashing.MissingSource:
			fmt.Fprintf(w, "  EXTRA     %s (not on source)\n", cmp.RelativePath)
		case hashing.HashError:
			fmt.Fprintf(w, "  ERROR     %s (could not be hashed)\n", cmp.RelativePath)
		}
	}

	fmt.Fprintf(w, "\nVerified %s against %s (%s, %s)\n",
		result.SourceRoot, result.TargetRoot, result.Algorithm,
		result.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Exact matches:  %d\n", result.ExactMatches)
	fmt.Fprintf(w, "  Mismatches:     %d\n", result.Mismatches)
	fmt.Fprintf(w, "  Missing target: %d\n", result.MissingTarget)
	fmt.Fprintf(w, "  Missing source: %d\n", result.MissingSource)
	if result.Errored > 0 {
		fmt.Fprintf(w, "  Hash errors:    %d\n", result.Errored)
	}

	if result.Identical() {
		fmt.Fprintf(w, "\nResult: IDENTICAL\n")
	} else {
		fmt.Fprintf(w, "\nResult: DIFFERENT\n")
	}

	return f.printErrors(w, result.Errors)
}

// Copy renders the copy summary including how the strategy was chosen
func (f *HumanFormatter) Copy(w io.Writer, result *copier.Result) error {
	fmt.Fprintf(w, "Copied %d files (%s) in %s\n",
		result.FilesCopied, humanize.IBytes(uint64(result.BytesCopied)),
		result.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Strategy:   %s (%s)\n", result.StrategyName, result.SelectionReason)
	fmt.Fprintf(w, "  Threads:    %d\n", result.ThreadCount)
	fmt.Fprintf(w, "  Source:     %s\n", describeStorage(result.SourceStorage))
	fmt.Fprintf(w, "  Dest:       %s\n", describeStorage(result.DestStorage))
	fmt.Fprintf(w, "  Throughput: %.1f MB/s\n", result.ThroughputMBps)

	verified := 0
	for _, rec := range result.Files {
		if rec.Verified {
			verified++
		}
	}
	if verified > 0 {
		fmt.Fprintf(w, "  Verified:   %d/%d files re-read from destination\n",
			verified, result.FilesCopied)
	}

	if result.Success {
		fmt.Fprintf(w, "\nResult: OK\n")
	} else {
		fmt.Fprintf(w, "\nResult: FAILED\n")
	}

	return f.printErrors(w, result.FileErrors)
}

// Storage renders a storage classification
func (f *HumanFormatter) Storage(w io.Writer, path string, info storage.Info) error {
	fmt.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  Type:       %s\n", info.DriveType)
	fmt.Fprintf(w, "  Bus:        %s\n", info.BusType)
	fmt.Fprintf(w, "  Device:     %s\n", info.DeviceID)
	fmt.Fprintf(w, "  Method:     %s\n", info.DetectionMethod)
	fmt.Fprintf(w, "  Confidence: %.0f%%\n", info.Confidence*100)
	return nil
}

func (f *HumanFormatter) printErrors(w io.Writer, errs map[string]string) error {
	if len(errs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "\nErrors:\n")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, errs[k])
	}
	return nil
}

func describeStorage(info storage.Info) string {
	return fmt.Sprintf("%s (bus %s, confidence %.0f%%)",
		info.DriveType, info.BusType, info.Confidence*100)
}
