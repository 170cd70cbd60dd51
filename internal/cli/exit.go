package cli

import "github.com/aretw0/chronoshift/pkg/domain"

// Exit codes. Orchestration failures get distinct codes so scripts can
// tell "the tool could not sync" from "the payload failed" from "ran fine
// but the system needs a manual reset".
const (
	ExitOK                    = 0
	ExitUsage                 = 64
	ExitTimeSourceUnreachable = 65
	ExitTechniqueExhausted    = 66
	ExitPermissionDenied      = 67
	ExitRevertFailed          = 68
	ExitPayloadLaunchFailed   = 69
)

// exitCodeFor maps an engine outcome to the process exit code. The
// payload's own exit code passes through whenever the payload ran; a
// failed automatic revert only claims the exit code when the payload
// itself succeeded.
func exitCodeFor(o domain.Outcome) int {
	switch o.Status {
	case domain.StatusSuccess:
		return o.ExitCode
	case domain.StatusRevertFailed:
		if o.ExitCode == 0 {
			return ExitRevertFailed
		}
		return o.ExitCode
	case domain.StatusTimeSourceUnreachable:
		return ExitTimeSourceUnreachable
	case domain.StatusEnvironmentBlocked, domain.StatusTechniqueExhausted:
		return ExitTechniqueExhausted
	case domain.StatusPayloadLaunchFailed:
		return ExitPayloadLaunchFailed
	default:
		return 1
	}
}
