package models

// All returns every model managed by schema setup, ordered so that
// referenced tables come first.
func All() []any {
	return []any{
		&User{},
		&Review{},
		&ReviewAnalysis{},
		&Prediction{},
		&AnalysisPreference{},
	}
}
