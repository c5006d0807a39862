package smoke

// Series names used in violations.
const (
	SeriesNational = "national"
	SeriesRegional = "regional"
)

// Property names used in violations.
const (
	PropertyOrdered        = "ascending_unique_dates"
	PropertyDifference     = "daily_equals_cumulative_difference"
	PropertyFirstDate      = "first_date_dropped"
	PropertyRegionIsolated = "per_region_differencing"
)

// Tolerance for comparing floating point sums.
const epsilon = 1e-6
