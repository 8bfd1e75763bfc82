package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Project describes a documentary series.
type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Episode describes one production unit.
type Episode struct {
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Duration    string `json:"duration,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Phase is the state of one workflow phase.
type Phase struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Position    int    `json:"position"`
	Status      string `json:"status"`
	StartedAt   string `json:"startedAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
	ReviewNotes string `json:"reviewNotes,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Workflow is the phase state of an episode.
type Workflow struct {
	EpisodeID    string            `json:"episodeId"`
	CurrentPhase string            `json:"currentPhase"`
	Complete     bool              `json:"complete"`
	Version      int64             `json:"version"`
	Phases       []Phase           `json:"phases"`
	Summary      map[string]string `json:"summary"`
	UpdatedAt    string            `json:"updatedAt,omitempty"`
}

// EpisodeDetail pairs an episode with its workflow.
type EpisodeDetail struct {
	Episode
	Workflow Workflow `json:"workflow"`
}

// Transition is one recorded status change.
type Transition struct {
	ID    int64  `json:"id"`
	Phase string `json:"phase"`
	From  string `json:"from"`
	To    string `json:"to"`
	Notes string `json:"notes,omitempty"`
	At    string `json:"at"`
}

// PhaseCounts tallies episodes by status for one phase.
type PhaseCounts struct {
	Phase  string         `json:"phase"`
	Counts map[string]int `json:"counts"`
}

// OverdueEntry is a review or revision past its SLA.
type OverdueEntry struct {
	EpisodeID    string  `json:"episodeId"`
	EpisodeTitle string  `json:"episodeTitle"`
	Phase        string  `json:"phase"`
	Status       string  `json:"status"`
	Since        string  `json:"since"`
	AgeHours     float64 `json:"ageHours"`
	SLAHours     float64 `json:"slaHours"`
}

// Report is the dashboard payload.
type Report struct {
	GeneratedAt string         `json:"generatedAt"`
	Episodes    int            `json:"episodes"`
	Completed   int            `json:"completed"`
	NotStarted  int            `json:"notStarted"`
	Phases      []PhaseCounts  `json:"phases"`
	Overdue     []OverdueEntry `json:"overdue"`
}

// CreateProjectRequest is the body of POST /api/projects.
type CreateProjectRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"max=64"`
}

// UpdateProjectRequest is the body of PUT /api/projects/{id}. Omitted fields
// keep their stored values.
type UpdateProjectRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Status      *string `json:"status" validate:"omitempty,min=1,max=64"`
}

// CreateEpisodeRequest is the body of POST /api/episodes.
type CreateEpisodeRequest struct {
	ProjectID   string `json:"projectId" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Duration    string `json:"duration" validate:"max=64"`
}

// UpdateEpisodeRequest is the body of PUT /api/episodes/{id}. Omitted fields
// keep their stored values.
type UpdateEpisodeRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Duration    *string `json:"duration" validate:"omitempty,max=64"`
}

// AdvanceRequest is the body of PUT /api/episodes/{id}/workflow/phase.
type AdvanceRequest struct {
	Phase  string `json:"phase" validate:"required"`
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=4000"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}
