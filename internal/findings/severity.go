package findings

// DefaultDeltaMediumThreshold is the fractional delta above which a finding
// is at least medium severity when no configured value is supplied.
const DefaultDeltaMediumThreshold = 0.05

// ComputeSeverity derives a finding's severity from its two inputs: the
// delta between the independently computed values (when both exist) and
// whether the requirement threshold held.
//
// An unmet hard requirement is never merely a discrepancy, so a violated
// threshold is high severity regardless of delta, even at delta zero.
// Otherwise a delta above the medium cutoff is medium, and anything else
// is low.
func ComputeSeverity(delta *float64, thresholdMet bool, deltaMediumCutoff float64) Severity {
	if !thresholdMet {
		return SeverityHigh
	}
	if deltaMediumCutoff <= 0 {
		deltaMediumCutoff = DefaultDeltaMediumThreshold
	}
	if delta != nil && abs(*delta) > deltaMediumCutoff {
		return SeverityMedium
	}
	return SeverityLow
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
