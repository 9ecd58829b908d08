package gmaps

type StageOutcome string

const (
	OutcomeOK        StageOutcome = "OK"
	OutcomeNoResults StageOutcome = "NO_RESULTS"
	OutcomeBlocked   StageOutcome = "BLOCKED"
	OutcomeError     StageOutcome = "ERROR"
)

// Terminal reports whether the outcome stops the remaining stages of an area.
func (o StageOutcome) Terminal() bool {
	return o != OutcomeOK
}

func (o StageOutcome) String() string {
	return string(o)
}
