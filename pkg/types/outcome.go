// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DownloadOutcome classifies a single download attempt.
type DownloadOutcome int

const (
	OutcomeSucceeded DownloadOutcome = iota
	OutcomeBlocked
	OutcomeFailed
	OutcomeSkippedDuplicate
)

func (o DownloadOutcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkippedDuplicate:
		return "skipped-duplicate"
	default:
		return "unknown"
	}
}

// CompletionRecord marks one (site, keyword) pair as fully processed.
type CompletionRecord struct {
	Site        string    `json:"site" yaml:"site"`
	Keyword     string    `json:"keyword" yaml:"keyword"`
	Directory   string    `json:"directory,omitempty" yaml:"directory,omitempty"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}
