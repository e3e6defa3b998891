// Package wizard drives the counter report workflow: site, counter,
// verification and report, each backed by a controller, with a navigator
// that refuses to enter a step whose upstream choices are missing.
package wizard

import (
	"log/slog"

	"github.com/itms/portal/internal/session"
)

// Step is a page of the client.
type Step int

const (
	StepLogin Step = iota
	StepDashboard
	StepSiteSelection
	StepCounterSelection
	StepCounterVerification
	StepCounterReport
)

func (s Step) String() string {
	switch s {
	case StepLogin:
		return "login"
	case StepDashboard:
		return "dashboard"
	case StepSiteSelection:
		return "site selection"
	case StepCounterSelection:
		return "counter selection"
	case StepCounterVerification:
		return "counter verification"
	case StepCounterReport:
		return "counter report"
	default:
		return "unknown"
	}
}

// Title is the heading shown for the step.
func (s Step) Title() string {
	switch s {
	case StepLogin:
		return "Sign In"
	case StepDashboard:
		return "Dashboard"
	case StepSiteSelection:
		return "Select Site"
	case StepCounterSelection:
		return "Select Counter"
	case StepCounterVerification:
		return "Verify Counter"
	case StepCounterReport:
		return "Counter Report Checklist"
	default:
		return ""
	}
}

// Credentials reports whether the user holds a usable token.
// *auth.TokenStore satisfies it.
type Credentials interface {
	Token() (string, error)
}

// Navigator decides which page is shown when one is requested.
type Navigator struct {
	session *session.Store
	creds   Credentials
	logger  *slog.Logger
}

// NewNavigator returns a Navigator reading selections from s.
func NewNavigator(s *session.Store, creds Credentials, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{session: s, creds: creds, logger: logger}
}

// Guard returns the step to show when step is requested and whether that is
// the requested step. Every page but login needs a credential. A wizard step
// whose upstream selection is missing sends the user back to site selection
// and discards whatever partial selection was stored.
func (n *Navigator) Guard(step Step) (Step, bool) {
	if step == StepLogin {
		return step, true
	}
	if _, err := n.creds.Token(); err != nil {
		return StepLogin, false
	}

	var needSite, needCounter bool
	switch step {
	case StepCounterSelection:
		needSite = true
	case StepCounterVerification, StepCounterReport:
		needSite, needCounter = true, true
	}
	if !needSite {
		return step, true
	}

	site, err := n.session.Site()
	if err != nil {
		n.logger.Warn("read selected site", "error", err)
	}
	ok := site != nil
	if ok && needCounter {
		counter, err := n.session.Counter()
		if err != nil {
			n.logger.Warn("read selected counter", "error", err)
		}
		ok = counter != nil
	}
	if ok {
		return step, true
	}

	n.logger.Info("missing wizard context", "requested", step.String())
	if err := n.session.Clear(); err != nil {
		n.logger.Warn("clear partial selection", "error", err)
	}
	return StepSiteSelection, false
}

// Next returns the step after s in the wizard. The report leads back to the
// dashboard.
func Next(s Step) Step {
	switch s {
	case StepLogin:
		return StepDashboard
	case StepDashboard:
		return StepSiteSelection
	case StepSiteSelection:
		return StepCounterSelection
	case StepCounterSelection:
		return StepCounterVerification
	case StepCounterVerification:
		return StepCounterReport
	default:
		return StepDashboard
	}
}

// Back returns the step before s in the wizard.
func Back(s Step) Step {
	switch s {
	case StepCounterReport:
		return StepCounterVerification
	case StepCounterVerification:
		return StepCounterSelection
	case StepCounterSelection:
		return StepSiteSelection
	case StepSiteSelection:
		return StepDashboard
	default:
		return s
	}
}
