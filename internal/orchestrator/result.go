package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"media-converter/internal/delivery"
	"media-converter/internal/mediatypes"
	"media-converter/internal/profile"
)

// Result describes a successful conversion. OutputPath is reported for
// logging only: the file has been removed by the time Convert returns.
type Result struct {
	JobID         string             `json:"jobId"`
	OutputPath    string             `json:"-"`
	OutputName    string             `json:"outputName"`
	OutputSize    int64              `json:"outputSize"`
	InputSize     int64              `json:"inputSize"`
	Format        mediatypes.Format  `json:"format"`
	Quality       string             `json:"quality,omitempty"`
	Resolution    string             `json:"resolution,omitempty"`
	FrameRate     string             `json:"frameRate,omitempty"`
	Elapsed       time.Duration      `json:"-"`
	ElapsedMs     int64              `json:"elapsedMs"`
	SizeReduction float64            `json:"sizeReduction"`
	Profile       *profile.Profile   `json:"profile,omitempty"`
	Deliveries    []delivery.Receipt `json:"deliveries,omitempty"`
}

// SizeReduction returns the percentage by which output is smaller than
// declared. It is negative when the output grew and 0 when nothing was
// declared.
func SizeReduction(declared, output int64) float64 {
	if declared <= 0 {
		return 0
	}
	return (1 - float64(output)/float64(declared)) * 100
}

func newResult(j *job, outputPath string, outputSize int64, prof *profile.Profile) *Result {
	elapsed := time.Since(j.start)

	inputSize := j.req.Input.Size
	name := delivery.OutputName(j.params.format)
	if j.req.Audio != nil {
		inputSize += j.req.Audio.Size
		name = delivery.ProcessedName(j.params.format)
	}

	res := &Result{
		JobID:         j.id,
		OutputPath:    outputPath,
		OutputName:    name,
		OutputSize:    outputSize,
		InputSize:     inputSize,
		Format:        j.params.format,
		Elapsed:       elapsed,
		ElapsedMs:     elapsed.Milliseconds(),
		SizeReduction: SizeReduction(inputSize, outputSize),
		Profile:       prof,
	}
	if prof != nil {
		res.Quality = string(j.params.quality)
		res.Resolution = string(j.params.resolution)
		res.FrameRate = string(j.params.frameRate)
	}
	return res
}

func (r *Result) artifact() delivery.Artifact {
	return delivery.Artifact{
		JobID:         r.JobID,
		Path:          r.OutputPath,
		Name:          r.OutputName,
		Format:        r.Format,
		ContentType:   mediatypes.GetMimeType(r.Format.Ext()),
		Size:          r.OutputSize,
		InputSize:     r.InputSize,
		SizeReduction: r.SizeReduction,
		Elapsed:       r.Elapsed,
	}
}

func megabytes(n int64) float64 {
	return float64(n) / float64(mediatypes.MiB)
}

// Summary renders the result the way it is shown to users.
func (r *Result) Summary() string {
	var b strings.Builder
	if r.Profile == nil {
		b.WriteString("Processing complete!\n")
	} else {
		b.WriteString("Conversion complete!\n")
	}
	fmt.Fprintf(&b, "Format: %s\n", strings.ToUpper(string(r.Format)))
	if r.Quality != "" {
		fmt.Fprintf(&b, "Quality: %s\n", r.Quality)
	}
	if r.Resolution != "" && r.Resolution != string(mediatypes.ResolutionOriginal) {
		fmt.Fprintf(&b, "Resolution: %sp\n", r.Resolution)
	}
	if r.FrameRate != "" && r.FrameRate != string(mediatypes.FrameRateOriginal) {
		fmt.Fprintf(&b, "Frame rate: %s fps\n", r.FrameRate)
	}
	fmt.Fprintf(&b, "Size reduction: %.1f%%\n", r.SizeReduction)
	fmt.Fprintf(&b, "Original size: %.2fMB\n", megabytes(r.InputSize))
	fmt.Fprintf(&b, "New size: %.2fMB\n", megabytes(r.OutputSize))
	fmt.Fprintf(&b, "Time taken: %.2f seconds", r.Elapsed.Seconds())
	return b.String()
}
