package domain

import "time"

type JobState string

const (
	JobStateQueued    JobState = "QUEUED"
	JobStateRunning   JobState = "RUNNING"
	JobStateSucceeded JobState = "SUCCEEDED"
	JobStateFailed    JobState = "FAILED"
	JobStateCancelled JobState = "CANCELLED"
)

const JobTypeTrain = "train"

// IsTerminal reports whether no further transition can happen.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateSucceeded, JobStateFailed, JobStateCancelled:
		return true
	}
	return false
}

func (s JobState) IsValid() bool {
	switch s {
	case JobStateQueued, JobStateRunning, JobStateSucceeded, JobStateFailed, JobStateCancelled:
		return true
	}
	return false
}

var jobTransitions = map[JobState][]JobState{
	JobStateQueued:  {JobStateRunning, JobStateFailed, JobStateCancelled},
	JobStateRunning: {JobStateSucceeded, JobStateFailed, JobStateCancelled},
}

// CanTransitionTo reports whether the job state machine allows from -> to.
// States only move forward: QUEUED -> RUNNING -> SUCCEEDED|FAILED, with
// CANCELLED reachable from any non-terminal state.
func (s JobState) CanTransitionTo(to JobState) bool {
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Job is a remote training job.
type Job struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	TaskID    string    `json:"task_id"`
	Type      string    `json:"type"`
	State     JobState  `json:"state"`
	Progress  float64   `json:"progress"`
	Message   string    `json:"message,omitempty"`
	ModelID   string    `json:"model_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransitionTo moves the job to a new state, refusing backwards moves.
func (j *Job) TransitionTo(to JobState, now time.Time) error {
	if j.State.IsTerminal() {
		return ErrJobAlreadyTerminal
	}
	if !j.State.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	j.State = to
	j.UpdatedAt = now
	return nil
}

type JobFilter struct {
	ProjectID string
	State     JobState
}
