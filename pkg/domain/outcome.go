package domain

// OutcomeStatus describes how an invocation ended.
type OutcomeStatus string

const (
	// StatusSuccess means the payload ran and any system-wide change was
	// reverted. ExitCode carries the payload's own code.
	StatusSuccess OutcomeStatus = "success"

	// StatusRevertFailed means the payload ran but the automatic revert
	// failed; the journal entry is kept for a later reset.
	StatusRevertFailed OutcomeStatus = "revert_failed"

	// StatusTechniqueExhausted means every candidate technique failed to
	// apply.
	StatusTechniqueExhausted OutcomeStatus = "technique_exhausted"

	// StatusEnvironmentBlocked means no technique was eligible, or a forced
	// technique was ineligible in this environment.
	StatusEnvironmentBlocked OutcomeStatus = "environment_blocked"

	// StatusTimeSourceUnreachable means the reference time could not be
	// fetched; nothing was mutated.
	StatusTimeSourceUnreachable OutcomeStatus = "time_source_unreachable"

	// StatusPayloadLaunchFailed means the technique applied (and was
	// reverted) but the child process could not start.
	StatusPayloadLaunchFailed OutcomeStatus = "payload_launch_failed"
)

// Outcome is the result of one engine invocation.
type Outcome struct {
	Status    OutcomeStatus
	Technique TechniqueID // technique that ended up applied, 0 if none
	ExitCode  int         // payload exit code when the payload ran
	Err       error       // orchestration error, nil on StatusSuccess
}
