package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/chronoshift/pkg/domain"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name    string
		outcome domain.Outcome
		want    int
	}{
		{"Success", domain.Outcome{Status: domain.StatusSuccess, ExitCode: 0}, 0},
		{"PayloadExitPassthrough", domain.Outcome{Status: domain.StatusSuccess, ExitCode: 42}, 42},
		{"RevertFailedAfterCleanPayload", domain.Outcome{Status: domain.StatusRevertFailed, ExitCode: 0}, ExitRevertFailed},
		{"RevertFailedKeepsPayloadExit", domain.Outcome{Status: domain.StatusRevertFailed, ExitCode: 3}, 3},
		{"TimeSourceUnreachable", domain.Outcome{Status: domain.StatusTimeSourceUnreachable, ExitCode: -1}, ExitTimeSourceUnreachable},
		{"EnvironmentBlocked", domain.Outcome{Status: domain.StatusEnvironmentBlocked, ExitCode: -1}, ExitTechniqueExhausted},
		{"TechniqueExhausted", domain.Outcome{Status: domain.StatusTechniqueExhausted, ExitCode: -1}, ExitTechniqueExhausted},
		{"PayloadLaunchFailed", domain.Outcome{Status: domain.StatusPayloadLaunchFailed, ExitCode: -1}, ExitPayloadLaunchFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCodeFor(tc.outcome))
		})
	}
}
