package config

// Mode selects what a run does with its results.
type Mode string

const (
	// ModeRecord persists a new baseline and compares nothing.
	ModeRecord Mode = "record"
	// ModeTest compares against the latest baseline and reports every mismatch.
	ModeTest Mode = "test"
	// ModePytest compares against the latest baseline and aborts on the first mismatch.
	ModePytest Mode = "pytest"
)

// ParseMode maps a selector to a Mode. Unrecognized values run as ModeTest.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeRecord:
		return ModeRecord
	case ModePytest:
		return ModePytest
	default:
		return ModeTest
	}
}

// Records reports whether the mode persists new baselines.
func (m Mode) Records() bool {
	return m == ModeRecord
}

// FailFast reports whether the first mismatch aborts the comparison.
func (m Mode) FailFast() bool {
	return m == ModePytest
}

// CrossValidates reports whether reference-curve validation is active.
func (m Mode) CrossValidates() bool {
	return m != ModeRecord
}

func (m Mode) String() string {
	return string(m)
}
