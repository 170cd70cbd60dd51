package chronoshift_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/chronoshift"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// ExampleNew demonstrates embedding chronoshift as a library: run one
// command against the target time source and inspect the outcome.
func ExampleNew() {
	shifter, err := chronoshift.New(
		chronoshift.WithServer("10.0.0.5"),
		chronoshift.WithJournalDir("/tmp/chronoshift-example"),
		chronoshift.WithTimeouts(5*time.Second, 30*time.Second, 30*time.Second),
	)
	if err != nil {
		log.Fatal(err)
	}

	// An interrupt kills the payload but the revert still runs.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcome := shifter.Run(ctx, chronoshift.Request{
		Command: []string{"klist", "-e"},
	})

	switch outcome.Status {
	case domain.StatusSuccess:
		fmt.Printf("payload exited %d under technique %d\n", outcome.ExitCode, outcome.Technique)
	case domain.StatusRevertFailed:
		// The payload ran but the host is still shifted; a standalone
		// reset will replay the journal.
		if err := shifter.Reset(ctx); err != nil {
			log.Fatal(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "shift failed: %v\n", outcome.Err)
	}
}

// ExampleShifter_Run_forced pins the process-scoped technique so nothing
// on the host changes, useful inside unprivileged containers.
func ExampleShifter_Run_forced() {
	shifter, err := chronoshift.New(chronoshift.WithServer("10.0.0.5"))
	if err != nil {
		log.Fatal(err)
	}

	outcome := shifter.Run(context.Background(), chronoshift.Request{
		Command:   []string{"date"},
		Technique: domain.TechniqueFaketime,
	})
	fmt.Println(outcome.Status)
}
