package hashing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dfirlabs/evicopy/pkg/logging"
)

// Verify hashes both trees and compares them in both directions: every
// source file must exist on the target with an identical digest, and
// every target file must trace back to a source file. Matching is by
// path relative to each root.
func (e *Engine) Verify(ctx context.Context, sourceRoot, targetRoot string, algorithm Algorithm, onProgress ProgressFunc) (*VerificationResult, error) {
	start := time.Now()

	sourceEntries, err := Discover([]string{sourceRoot})
	if err != nil {
		return nil, fmt.Errorf("discover source: %w", err)
	}
	targetEntries, err := Discover([]string{targetRoot})
	if err != nil {
		return nil, fmt.Errorf("discover target: %w", err)
	}

	result := &VerificationResult{
		Algorithm:  algorithm,
		SourceRoot: sourceRoot,
		TargetRoot: targetRoot,
		Errors:     make(map[string]string),
	}

	totalFiles := len(sourceEntries) + len(targetEntries)
	if totalFiles == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	// Progress from the two concurrent batches is aggregated weighted by
	// file counts, so neither side dominates the reported percentage.
	var (
		progressMu    sync.Mutex
		sourcePercent float64
		targetPercent float64
	)
	sourceWeight := float64(len(sourceEntries)) / float64(totalFiles)
	targetWeight := float64(len(targetEntries)) / float64(totalFiles)

	combined := func() {
		if onProgress == nil {
			return
		}
		progressMu.Lock()
		p := Progress{
			FilesTotal: totalFiles,
			Percent:    sourcePercent*sourceWeight + targetPercent*targetWeight,
		}
		progressMu.Unlock()
		onProgress(p)
	}

	var sourceBatch, targetBatch *BatchResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		sourceBatch, err = e.HashFiles(gctx, sourceEntries, algorithm, func(p Progress) {
			progressMu.Lock()
			sourcePercent = p.Percent
			progressMu.Unlock()
			combined()
		})
		return err
	})
	g.Go(func() error {
		var err error
		targetBatch, err = e.HashFiles(gctx, targetEntries, algorithm, func(p Progress) {
			progressMu.Lock()
			targetPercent = p.Percent
			progressMu.Unlock()
			combined()
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	compareBatches(result, sourceEntries, targetEntries, sourceBatch, targetBatch)

	sort.Slice(result.Comparisons, func(i, j int) bool {
		return result.Comparisons[i].RelativePath < result.Comparisons[j].RelativePath
	})

	result.Duration = time.Since(start)
	e.logger.Info(ctx, "verification finished", logging.Fields{
		"exact_matches":  result.ExactMatches,
		"mismatches":     result.Mismatches,
		"missing_target": result.MissingTarget,
		"missing_source": result.MissingSource,
		"errored":        result.Errored,
		"duration":       result.Duration.String(),
	})
	return result, nil
}

// compareBatches merges the two hashed sides into per-file verdicts. A
// file that failed to hash on either side is classified as an error,
// never as missing: the file exists, it just could not be read.
func compareBatches(result *VerificationResult, sourceEntries, targetEntries []FileEntry, sourceBatch, targetBatch *BatchResult) {
	sourceByRel := make(map[string]HashResult, len(sourceBatch.Results))
	for _, hr := range sourceBatch.Results {
		sourceByRel[hr.RelativePath] = hr
	}
	targetByRel := make(map[string]HashResult, len(targetBatch.Results))
	for _, hr := range targetBatch.Results {
		targetByRel[hr.RelativePath] = hr
	}

	for path, msg := range sourceBatch.Errors {
		result.Errors["source:"+path] = msg
	}
	for path, msg := range targetBatch.Errors {
		result.Errors["target:"+path] = msg
	}

	// Batch errors are keyed by absolute path; map them back to the
	// relative paths the comparison runs on.
	failed := make(map[string]bool)
	markFailed(failed, sourceEntries, sourceBatch.Errors)
	markFailed(failed, targetEntries, targetBatch.Errors)

	for rel := range failed {
		cmp := FileComparison{RelativePath: rel, Outcome: HashError}
		if src, ok := sourceByRel[rel]; ok {
			cmp.SourceDigest = src.Digest
			cmp.Size = src.Size
		}
		if tgt, ok := targetByRel[rel]; ok {
			cmp.TargetDigest = tgt.Digest
			if cmp.Size == 0 {
				cmp.Size = tgt.Size
			}
		}
		result.Comparisons = append(result.Comparisons, cmp)
		result.Errored++
	}

	for rel, src := range sourceByRel {
		if failed[rel] {
			continue
		}
		tgt, ok := targetByRel[rel]
		if !ok {
			result.Comparisons = append(result.Comparisons, FileComparison{
				RelativePath: rel,
				Outcome:      MissingTarget,
				SourceDigest: src.Digest,
				Size:         src.Size,
			})
			result.MissingTarget++
			continue
		}
		cmp := FileComparison{
			RelativePath: rel,
			SourceDigest: src.Digest,
			TargetDigest: tgt.Digest,
			Size:         src.Size,
		}
		if src.Digest == tgt.Digest {
			cmp.Outcome = ExactMatch
			result.ExactMatches++
		} else {
			cmp.Outcome = Mismatch
			result.Mismatches++
		}
		result.Comparisons = append(result.Comparisons, cmp)
	}

	for rel, tgt := range targetByRel {
		if failed[rel] {
			continue
		}
		if _, ok := sourceByRel[rel]; ok {
			continue
		}
		result.Comparisons = append(result.Comparisons, FileComparison{
			RelativePath: rel,
			Outcome:      MissingSource,
			TargetDigest: tgt.Digest,
			Size:         tgt.Size,
		})
		result.MissingSource++
	}
}

// markFailed records the relative paths of entries whose hashing failed
func markFailed(failed map[string]bool, entries []FileEntry, errs map[string]string) {
	if len(errs) == 0 {
		return
	}
	for _, e := range entries {
		if _, ok := errs[e.Path]; ok {
			failed[e.RelativePath] = true
		}
	}
}
