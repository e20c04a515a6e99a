package models

import "time"

// Pipeline stage statuses
const (
	StageStatusSuccess = "success"
	StageStatusSkipped = "skipped"
	StageStatusFailed  = "failed"
)

// Pipeline overall statuses
const (
	PipelineStatusSuccess = "success"
	PipelineStatusPartial = "partial"
	PipelineStatusFailed  = "failed"
)

// StageResult records one pipeline stage execution
type StageResult struct {
	Name            string         `json:"name"`
	Status          string         `json:"status"`
	DurationSeconds float64        `json:"duration_seconds"`
	Summary         map[string]any `json:"summary,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// PipelineResult is the orchestrator summary persisted to pipeline_status.json
type PipelineResult struct {
	RunID           string        `json:"run_id"`
	Status          string        `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	DurationSeconds float64       `json:"duration_seconds"`
	GeneratedAt     time.Time     `json:"generated_at"`
	Stages          []StageResult `json:"stages"`
}

// OverallStatus derives the pipeline status from its stages: success when
// every stage is success or skipped, failed when nothing succeeded, else
// partial.
func (p *PipelineResult) OverallStatus() string {
	failed := 0
	succeeded := 0
	for _, s := range p.Stages {
		switch s.Status {
		case StageStatusFailed:
			failed++
		case StageStatusSuccess:
			succeeded++
		}
	}
	switch {
	case failed == 0:
		return PipelineStatusSuccess
	case succeeded == 0:
		return PipelineStatusFailed
	default:
		return PipelineStatusPartial
	}
}
