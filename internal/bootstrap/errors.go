package bootstrap

import "fmt"

// Stage names the pipeline step an error escaped from. It is what the
// user sees in the failure line and what tests assert on.
type Stage string

const (
	StagePlatform Stage = "platform detection"
	StagePrereq   Stage = "prerequisite install"
	StageSync     Stage = "repository sync"
	StageRelease  Stage = "release lookup"
	StageInstall  Stage = "binary install"
	StageBuild    Stage = "source build"
)

// StageError wraps a failure with the stage it happened in. Whether a
// stage error is fatal or triggers the source fallback is decided by
// the orchestrator, not encoded here.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
