package ozonapi

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultPollMaxAttempts = 30
	defaultPollInterval    = 10 * time.Second
)

// ReportState is the lifecycle state of an asynchronous report job.
// Succeeded, Failed, and TimedOut are terminal.
type ReportState int

const (
	ReportSubmitted ReportState = iota
	ReportInProgress
	ReportSucceeded
	ReportFailed
	ReportTimedOut
)

// String returns the state name.
func (s ReportState) String() string {
	switch s {
	case ReportSubmitted:
		return "submitted"
	case ReportInProgress:
		return "in_progress"
	case ReportSucceeded:
		return "succeeded"
	case ReportFailed:
		return "failed"
	case ReportTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// ReportPollingProgress is an immutable snapshot emitted on every poll tick.
type ReportPollingProgress struct {
	ReportID    string
	Attempt     int
	MaxAttempts int
	Percent     float64
	Status      string
	Elapsed     time.Duration
}

// ProgressFunc observes report polling progress. It is fire-and-forget:
// panics inside it are swallowed and never affect the poll loop.
type ProgressFunc func(ReportPollingProgress)

// pollStatus is one status-check result, parsed by the submitting subclient.
type pollStatus struct {
	state   string
	done    bool
	failed  bool
	reason  string
	percent float64
}

// poller turns a submit-then-poll remote workflow into a single awaitable
// operation. Every submit and status check goes through the transport, so
// transient failures during polling are retried per call, never by restarting
// the whole loop.
type poller struct {
	maxAttempts int
	interval    time.Duration
	onProgress  ProgressFunc
	logger      *slog.Logger
}

func newPoller(maxAttempts int, interval time.Duration, onProgress ProgressFunc, logger *slog.Logger) *poller {
	if maxAttempts <= 0 {
		maxAttempts = defaultPollMaxAttempts
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &poller{
		maxAttempts: maxAttempts,
		interval:    interval,
		onProgress:  onProgress,
		logger:      logger,
	}
}

// run submits the job and polls until a terminal state or the attempt budget
// runs out. It returns the job ID on success; the caller downloads the result.
func (p *poller) run(
	ctx context.Context,
	submit func(context.Context) (string, error),
	check func(context.Context, string) (pollStatus, error),
) (string, error) {
	id, err := submit(ctx)
	if err != nil {
		return "", err
	}

	state := ReportSubmitted
	p.logger.Debug("report job submitted", "report_id", id, "state", state)

	start := time.Now()
	var last pollStatus

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := sleepContext(ctx, p.interval); err != nil {
			return "", err
		}

		st, err := check(ctx, id)
		if err != nil {
			return "", err
		}
		last = st

		if st.failed {
			state = ReportFailed
			p.logger.Warn("report job failed remotely",
				"report_id", id,
				"state", state,
				"reason", st.reason)
			return "", &ReportFailedError{ReportID: id, Reason: st.reason}
		}

		if st.done {
			state = ReportSucceeded
			p.logger.Debug("report job ready",
				"report_id", id,
				"state", state,
				"attempts", attempt)
			p.notify(ReportPollingProgress{
				ReportID:    id,
				Attempt:     attempt,
				MaxAttempts: p.maxAttempts,
				Percent:     100,
				Status:      st.state,
				Elapsed:     time.Since(start),
			})
			return id, nil
		}

		state = ReportInProgress
		p.logger.Debug("report job still running",
			"report_id", id,
			"state", state,
			"attempt", attempt,
			"status", st.state)
		p.notify(ReportPollingProgress{
			ReportID:    id,
			Attempt:     attempt,
			MaxAttempts: p.maxAttempts,
			Percent:     st.percent,
			Status:      st.state,
			Elapsed:     time.Since(start),
		})
	}

	state = ReportTimedOut
	p.logger.Warn("report polling budget exhausted",
		"report_id", id,
		"state", state,
		"attempts", p.maxAttempts,
		"last_status", last.state)
	return "", &ReportTimeoutError{
		ReportID:   id,
		Attempts:   p.maxAttempts,
		LastStatus: last.state,
	}
}

// notify invokes the progress observer, isolating the poll loop from panics
// inside caller-supplied code.
func (p *poller) notify(progress ReportPollingProgress) {
	if p.onProgress == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	p.onProgress(progress)
}
