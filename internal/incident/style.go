package incident

// StyleGuide is the tone and content guideline set shared by generation and judgment.
type StyleGuide struct {
	Tone            []string         `json:"tone" yaml:"tone"`
	MustContain     []string         `json:"must_contain" yaml:"must_contain"`
	MustExclude     []string         `json:"must_exclude" yaml:"must_exclude"`
	UpdateFrequency string           `json:"update_frequency" yaml:"update_frequency"`
	Examples        map[Phase]string `json:"examples" yaml:"examples"`
}

// DefaultStyleGuide returns the built-in guideline set.
func DefaultStyleGuide() StyleGuide {
	return StyleGuide{
		Tone: []string{
			"Professional and empathetic",
			"Direct and honest without over-sharing",
			"Avoid technical jargon",
			"Focus on customer impact, not internal details",
		},
		MustContain: []string{
			"What is happening (customer-observable symptoms)",
			"What is affected",
			"What we are doing about it",
			"When to expect the next update or resolution",
		},
		MustExclude: []string{
			"Internal system names (unless customer-facing)",
			`Technical root cause details ("connection pool exhaustion", "Redis cache miss")`,
			"Blame or specific engineer names",
			"Speculation or unconfirmed information",
			`Overly technical metrics ("p99 latency 15s" becomes "significantly slower response times")`,
		},
		UpdateFrequency: "Regular updates every 30-60 minutes during active incidents",
		Examples: map[Phase]string{
			PhaseInvestigating: "We are currently investigating reports of slower than normal API response times. " +
				"Some customers may experience delays when making API calls. Our engineering team is actively investigating the issue.\n\n" +
				"We will provide an update within 30 minutes or as soon as we have more information.",
			PhaseIdentified: "We have identified the cause of the API performance issues. Our engineering team is working to resolve it. " +
				"API calls may continue to experience increased response times during this work.\n\n" +
				"Affected: API endpoints\nImpact: Increased response times, some timeouts may occur\n\n" +
				"We expect to have this resolved within 30 minutes and will provide updates as we make progress.",
			PhaseMonitoring: "We have implemented a fix and API response times are returning to normal. " +
				"We are monitoring the system to ensure stability.\n\n" +
				"Most customers should see normal performance resuming. We will continue monitoring for the next hour before marking this incident as fully resolved.",
			PhaseResolved: "This incident has been resolved. API performance has returned to normal and has remained stable for over 90 minutes.\n\n" +
				"Summary:\n- Incident start: ~2:20 PM PT\n- Incident resolution: ~3:00 PM PT\n- Total duration: ~40 minutes\n" +
				"- Impact: Increased API response times, some requests experienced timeouts\n\n" +
				"We apologize for any inconvenience this may have caused. If you continue to experience issues, please contact our support team.",
		},
	}
}
