package incident

import (
	"fmt"
	"strings"
)

// Phase is one of the four incident-communication states.
type Phase string

const (
	PhaseInvestigating Phase = "Investigating"
	PhaseIdentified    Phase = "Identified"
	PhaseMonitoring    Phase = "Monitoring"
	PhaseResolved      Phase = "Resolved"
)

// Phases lists the valid phases in lifecycle order.
var Phases = []Phase{PhaseInvestigating, PhaseIdentified, PhaseMonitoring, PhaseResolved}

// ParsePhase accepts any casing of a phase name.
func ParsePhase(s string) (Phase, error) {
	v := strings.TrimSpace(s)
	for _, p := range Phases {
		if strings.EqualFold(v, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown phase %q (expected investigating, identified, monitoring or resolved)", s)
}

func (p Phase) Valid() bool {
	for _, v := range Phases {
		if p == v {
			return true
		}
	}
	return false
}

// Definition is the one-line meaning of the phase used in prompts.
func (p Phase) Definition() string {
	switch p {
	case PhaseInvestigating:
		return "We are aware of the issue and working to identify the cause"
	case PhaseIdentified:
		return "We know what's wrong and are implementing a fix"
	case PhaseMonitoring:
		return "Fix is deployed, we're watching to ensure it's working"
	case PhaseResolved:
		return "Issue is fixed and system is stable"
	}
	return "Unknown phase"
}

// SourceKind identifies where a raw signal came from.
type SourceKind string

const (
	SourcePagerDuty   SourceKind = "PagerDuty"
	SourceLogs        SourceKind = "Logs"
	SourceMetrics     SourceKind = "Metrics"
	SourceDeployments SourceKind = "Deployments"
	SourceChatThread  SourceKind = "ChatThread"
)

var SourceKinds = []SourceKind{SourcePagerDuty, SourceLogs, SourceMetrics, SourceDeployments, SourceChatThread}

// ParseSourceKind accepts any casing of a source kind name.
func ParseSourceKind(s string) (SourceKind, error) {
	v := strings.TrimSpace(s)
	for _, k := range SourceKinds {
		if strings.EqualFold(v, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown source kind %q", s)
}

func (k SourceKind) Valid() bool {
	for _, v := range SourceKinds {
		if k == v {
			return true
		}
	}
	return false
}
