package model

import "time"

// RunStatus represents the current state of a consolidation run.
type RunStatus string

const (
	RunStatusQueued        RunStatus = "queued"
	RunStatusFetching      RunStatus = "fetching"
	RunStatusAnalyzing     RunStatus = "analyzing"
	RunStatusConsolidating RunStatus = "consolidating"
	RunStatusPivoting      RunStatus = "pivoting"
	RunStatusFinalizing    RunStatus = "finalizing"
	RunStatusComplete      RunStatus = "complete"
	RunStatusFailed        RunStatus = "failed"
)

// Run represents a single pipeline execution.
type Run struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run. LastStage names the last
// stage that completed, which doubles as the partial-result indicator
// when a run fails midway.
type RunResult struct {
	NewsCount         int           `json:"news_count"`
	ConsolidatedCount int           `json:"consolidated_count"`
	FinalCount        int           `json:"final_count"`
	OutputPath        string        `json:"output_path,omitempty"`
	SnapshotPath      string        `json:"snapshot_path,omitempty"`
	LastStage         string        `json:"last_stage"`
	Stages            []StageResult `json:"stages"`
	Error             string        `json:"error,omitempty"`
}

// RunStage represents a stage within a run.
type RunStage struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    StageStatus  `json:"status"`
	Result    *StageResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// StageStatus represents the current state of a pipeline stage.
type StageStatus string

const (
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
	StageStatusSkipped  StageStatus = "skipped"
)

// StageResult holds the outcome of a pipeline stage.
type StageResult struct {
	Name     string         `json:"name"`
	Status   StageStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UploadStatus reports the hand-off of the final table to the upload
// sink. Failures here never affect the run's own success status.
type UploadStatus struct {
	Success bool   `json:"success"`
	Link    string `json:"link,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
