/*
Package chronoshift transiently aligns the perceived time of a command, a
shell session or the whole host with a remote NTP source, runs a payload
inside that time context, and guarantees the prior state is restored.

The hard part is not querying time; it is orchestrating mutually-exclusive
time-manipulation techniques with different privilege requirements and
side effects. Chronoshift probes the environment, picks the best eligible
technique (or the forced one), applies it with defined fallback ordering,
and tracks every system-wide mutation in a durable journal written before
the payload launches, so the change can be undone even if the process
crashes or is killed.

Six techniques are catalogued, from persistent NTP daemon reconfiguration
down to the process-scoped faketime wrapper that needs no privileges and
works everywhere. System-wide techniques pair every apply with a
guaranteed revert on all exit paths; the standalone reset operation
replays whatever the journal still holds.

The chronoshift binary under cmd/chronoshift is the usual entry point.
This package offers the same engine as a library:

	s, err := chronoshift.New(chronoshift.WithServer("10.0.0.5"))
	if err != nil {
		log.Fatal(err)
	}
	outcome := s.Run(context.Background(), chronoshift.Request{
		Command: []string{"date"},
	})
	os.Exit(outcome.ExitCode)
*/
package chronoshift
