package metrics

import (
	"time"

	"github.com/DukeRupert/lingua/internal/ai"
)

// Auth event labels.
const (
	EventLogin        = "login"
	EventLoginFailed  = "login_failed"
	EventLogout       = "logout"
	EventRegister     = "register"
	EventInvalidToken = "invalid_token"
)

// AuthEvent increments the counter for one authentication event.
func AuthEvent(event string) {
	AuthEventsTotal.WithLabelValues(event).Inc()
}

// ObserveClientBuild is an ai.BuildObserver that counts construction
// attempts per provider.
func ObserveClientBuild(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	AIClientBuildsTotal.WithLabelValues(provider, result).Inc()
}

var _ ai.BuildObserver = ObserveClientBuild

// AIUsage records token consumption for a completed request.
func AIUsage(provider string, usage ai.UsageInfo) {
	AITokensTotal.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
	AITokensTotal.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))
}

// JobStarted marks a job as in flight.
func JobStarted(jobType string) {
	JobsInFlight.WithLabelValues(jobType).Inc()
}

// JobCompleted records a successful job completion
func JobCompleted(jobType string, duration time.Duration) {
	JobsInFlight.WithLabelValues(jobType).Dec()
	JobsTotal.WithLabelValues(jobType, "completed").Inc()
	JobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// JobFailed records a job failure
func JobFailed(jobType string) {
	JobsInFlight.WithLabelValues(jobType).Dec()
	JobsTotal.WithLabelValues(jobType, "failed").Inc()
}
