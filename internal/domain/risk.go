package domain

// RiskWeights holds the additive scoring constants used by impact analysis.
// Passing the struct in (instead of package-level globals) lets tests pin
// deterministic weights.
type RiskWeights struct {
	SystemProperty    int
	ProtectedProperty int
	StandardProperty  int
	CustomProperty    int

	Delete     int
	TypeChange int
	Archive    int

	GraphOver10   int
	GraphOver5    int
	CriticalEdges int

	RecordsOver10000 int
	RecordsOver1000  int
	RecordsOver100   int

	UsageOver20 int
	UsageOver10 int
	UsageAny    int

	CriticalBand int
	HighBand     int
	MediumBand   int
}

func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		SystemProperty:    50,
		ProtectedProperty: 30,
		StandardProperty:  20,
		CustomProperty:    0,

		Delete:     30,
		TypeChange: 25,
		Archive:    15,

		GraphOver10:   20,
		GraphOver5:    10,
		CriticalEdges: 15,

		RecordsOver10000: 15,
		RecordsOver1000:  10,
		RecordsOver100:   5,

		UsageOver20: 15,
		UsageOver10: 10,
		UsageAny:    5,

		CriticalBand: 80,
		HighBand:     50,
		MediumBand:   25,
	}
}

// Band maps a score to its risk level and whether the caller may bypass the
// warning. High and critical are never bypassable.
func (w RiskWeights) Band(score int) (RiskLevel, bool) {
	switch {
	case score >= w.CriticalBand:
		return RiskCritical, false
	case score >= w.HighBand:
		return RiskHigh, false
	case score >= w.MediumBand:
		return RiskMedium, true
	default:
		return RiskLow, true
	}
}
