package cli

import (
	"github.com/cheggaaa/pb/v3"

	"github.com/dfirlabs/evicopy/pkg/hashing"
	"github.com/dfirlabs/evicopy/pkg/job"
)

// attachProgressBar draws a terminal progress bar fed by a job's
// progress stream. The returned function must be called after the job
// finishes to close the bar.
func attachProgressBar(handle *job.Handle, totalBytes int64) func() {
	tmpl := `{{counters . }} {{bar . }} {{percent . }} {{speed . }}`
	bar := pb.New64(totalBytes)
	bar.SetTemplateString(tmpl)
	bar.Set(pb.Bytes, true)
	bar.Start()

	throttler := job.NewThrottler(10)
	handle.OnProgress(throttler.Wrap(func(p hashing.Progress) {
		if p.BytesTotal > 0 {
			bar.SetTotal(p.BytesTotal)
			bar.SetCurrent(p.BytesDone)
		} else {
			// Percent-only streams (verification) map onto a 0-100 bar.
			bar.SetTotal(100)
			bar.SetCurrent(int64(p.Percent))
		}
	}))

	return func() { bar.Finish() }
}
