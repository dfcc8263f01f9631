// Package loadgen drives the prediction service with synthetic habit records
// and tallies what comes back.
package loadgen

import (
	"time"

	"github.com/okian/slumber/internal/domain/quality"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of records to submit
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Seed       uint64        // Generator seed; equal seeds give equal records
	OutputFile string        // Optional JSON dump of generated records
	SkipHealth bool          // Skip the /healthz check
}

// Stats holds run statistics.
type Stats struct {
	Generated int
	Submitted int
	Succeeded int

	ByQuality map[quality.Quality]int

	// Failures by kind: transport, service, malformed, cancelled.
	TransportFailures int
	ServiceFailures   int
	MalformedFailures int
	Cancelled         int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Failed returns the number of submissions that did not produce a result.
func (s *Stats) Failed() int {
	return s.TransportFailures + s.ServiceFailures + s.MalformedFailures + s.Cancelled
}

// Throughput returns submissions per second.
func (s *Stats) Throughput() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Submitted) / s.Duration.Seconds()
}
