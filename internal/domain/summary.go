package domain

// ActivitySummary aggregates a set of records for display.
type ActivitySummary struct {
	Count                int
	TotalDurationMinutes float64
	TotalDistanceKm      float64
}

// Summarize folds records into their aggregate totals: minutes are the summed
// durations divided by 60000, kilometres the summed distances divided by 1000.
func Summarize(records []ActivityRecord) ActivitySummary {
	summary := ActivitySummary{Count: len(records)}

	var durationMillis int64
	var distanceMeters float64
	for _, record := range records {
		durationMillis += record.DurationMillis
		distanceMeters += record.DistanceMeters
	}

	summary.TotalDurationMinutes = float64(durationMillis) / 60000.0
	summary.TotalDistanceKm = distanceMeters / 1000.0
	return summary
}
