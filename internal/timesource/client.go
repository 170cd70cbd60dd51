// Package timesource resolves a remote NTP host into a reference instant.
// The instant is captured once together with a local monotonic anchor, so
// techniques that apply seconds later (after fallback delays or the
// operator reading output) can target the instant the server would report
// now, not the stale one.
package timesource

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/beevik/ntp"

	"github.com/aretw0/chronoshift/pkg/domain"
)

// DefaultPort is the standard NTP UDP port.
const DefaultPort = 123

// Reference is an immutable reference time plus its capture anchor.
type Reference struct {
	// Instant is the server's transmit time at capture.
	Instant time.Time
	// capturedAt anchors Instant to the local monotonic clock.
	capturedAt time.Time
	// Offset is server minus local at capture.
	Offset time.Duration
}

// Target returns the instant the time source would report now: the captured
// instant advanced by the local monotonic time elapsed since capture.
func (r Reference) Target() time.Time {
	return r.Instant.Add(time.Since(r.capturedAt))
}

// Client queries a single NTP server.
type Client struct {
	Timeout time.Duration
	Logger  *slog.Logger

	// query is swappable for tests. Defaults to ntp.QueryWithOptions.
	query func(host string, opts ntp.QueryOptions) (*ntp.Response, error)
}

// NewClient returns a client with the given per-query timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		Timeout: timeout,
		Logger:  logger,
		query:   ntp.QueryWithOptions,
	}
}

// Fetch queries server:port and returns the captured Reference. Any
// network or protocol failure wraps domain.ErrTimeSourceUnreachable; the
// caller aborts before mutating anything.
func (c *Client) Fetch(server string, port int) (Reference, error) {
	if port <= 0 {
		port = DefaultPort
	}
	c.Logger.Debug("fetching reference time", "server", server, "port", port)

	q := c.query
	if q == nil {
		q = ntp.QueryWithOptions
	}
	resp, err := q(server, ntp.QueryOptions{Port: port, Timeout: c.Timeout})
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %s: %v", domain.ErrTimeSourceUnreachable, net.JoinHostPort(server, strconv.Itoa(port)), err)
	}
	if err := resp.Validate(); err != nil {
		return Reference{}, fmt.Errorf("%w: malformed reply from %s: %v", domain.ErrTimeSourceUnreachable, server, err)
	}

	now := time.Now()
	ref := Reference{
		Instant:    resp.Time,
		capturedAt: now,
		Offset:     resp.ClockOffset,
	}
	c.Logger.Debug("reference time captured",
		"server_time", ref.Instant.UTC().Format(time.RFC3339),
		"local_time", now.UTC().Format(time.RFC3339),
		"offset", ref.Offset.Round(time.Millisecond).String())
	return ref, nil
}

// NewFixedReference builds a Reference around a known instant. Used by
// tests and by adapters replaying journal entries.
func NewFixedReference(instant time.Time) Reference {
	return Reference{Instant: instant, capturedAt: time.Now()}
}
