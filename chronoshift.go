package chronoshift

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/chronoshift/internal/engine"
	"github.com/aretw0/chronoshift/internal/journal"
	"github.com/aretw0/chronoshift/internal/logging"
	"github.com/aretw0/chronoshift/internal/probe"
	"github.com/aretw0/chronoshift/internal/technique"
	"github.com/aretw0/chronoshift/internal/timesource"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// Version is the chronoshift release version.
const Version = "0.3.0"

// Request describes one shifted-time invocation.
type Request struct {
	// Command is the payload argv. Ignored when Shell is set.
	Command []string
	// Shell opens an interactive shell instead of a one-off command.
	Shell     bool
	ShellName string
	// Technique forces a specific technique (1-6); zero selects
	// automatically.
	Technique domain.TechniqueID
}

// Shifter is the high-level entry point for embedding chronoshift.
type Shifter struct {
	server          string
	port            int
	journalDir      string
	queryTimeout    time.Duration
	applyTimeout    time.Duration
	revertTimeout   time.Duration
	fallbackServers []string
	logger          *slog.Logger

	engine   *engine.Engine
	resetter *engine.Resetter
}

// Option configures a Shifter.
type Option func(*Shifter)

// WithServer sets the NTP server or domain controller address.
func WithServer(server string) Option {
	return func(s *Shifter) { s.server = server }
}

// WithPort sets the UDP port for NTP queries.
func WithPort(port int) Option {
	return func(s *Shifter) { s.port = port }
}

// WithJournalDir overrides the journal location.
func WithJournalDir(dir string) Option {
	return func(s *Shifter) { s.journalDir = dir }
}

// WithLogger injects a logger; the default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shifter) { s.logger = logger }
}

// WithTimeouts bounds the NTP query and each adapter apply/revert call.
func WithTimeouts(query, apply, revert time.Duration) Option {
	return func(s *Shifter) {
		s.queryTimeout = query
		s.applyTimeout = apply
		s.revertTimeout = revert
	}
}

// New builds a Shifter with the standard collaborators.
func New(opts ...Option) (*Shifter, error) {
	s := &Shifter{
		port:          timesource.DefaultPort,
		queryTimeout:  5 * time.Second,
		applyTimeout:  30 * time.Second,
		revertTimeout: 30 * time.Second,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	commander := technique.NewExecCommander(s.logger)
	registry := technique.NewRegistry(technique.Deps{
		Commander:       commander,
		Logger:          s.logger,
		FallbackServers: s.fallbackServers,
	})
	store := journal.NewStore(s.journalDir)
	prober := probe.New()
	source := timesource.NewClient(s.queryTimeout, s.logger)

	s.engine = engine.New(prober, source, registry, store, s.logger,
		engine.WithTimeouts(s.applyTimeout, s.revertTimeout))
	s.resetter = engine.NewResetter(prober, registry, store, commander, s.logger)
	return s, nil
}

// Run drives one invocation and returns its outcome.
func (s *Shifter) Run(ctx context.Context, req Request) domain.Outcome {
	return s.engine.Run(ctx, engine.Request{
		Server:    s.server,
		Port:      s.port,
		Forced:    req.Technique,
		Command:   req.Command,
		Shell:     req.Shell,
		ShellName: req.ShellName,
	})
}

// Reset reverts every outstanding system-wide change. Requires root.
func (s *Shifter) Reset(ctx context.Context) error {
	report, err := s.resetter.Reset(ctx)
	if err != nil {
		return err
	}
	if !report.Clean() {
		return report.Kept[0].Err
	}
	return nil
}
