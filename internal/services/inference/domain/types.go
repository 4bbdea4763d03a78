// Package domain holds the inference result shapes and the detection port
package domain

import (
	"context"

	"telewarehouse/internal/core/classify"
)

// Detection is one (label, confidence) pair returned for an image
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Result is one row of the detections table
// Objects and Scores are positionally aligned
type Result struct {
	MessageID int64
	Channel   string
	Objects   []string
	Scores    []float64
	Category  classify.Category
}

// NewResult builds a result row from raw detections
func NewResult(channel string, messageID int64, dets []Detection) Result {
	r := Result{
		MessageID: messageID,
		Channel:   channel,
		Objects:   make([]string, 0, len(dets)),
		Scores:    make([]float64, 0, len(dets)),
	}
	for _, d := range dets {
		r.Objects = append(r.Objects, d.Label)
		r.Scores = append(r.Scores, d.Confidence)
	}
	r.Category = classify.Classify(r.Objects)
	return r
}

// Report summarizes one inference run
type Report struct {
	Images  int
	Failed  int
	Skipped int
	Written bool
	Path    string
}

// Detector is the image detection capability
type Detector interface {
	Detect(ctx context.Context, imagePath string, confidence float64) ([]Detection, error)
}

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context) (Report, error)
}
