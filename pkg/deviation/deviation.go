// Package deviation compares current daily usage against the household baseline.
package deviation

// Percent returns the signed percentage by which dailyKWh deviates from the
// historical average. It is 0 when there is no positive baseline.
func Percent(dailyKWh, historicalAvgKWh float64) float64 {
	if historicalAvgKWh <= 0 {
		return 0
	}
	return (dailyKWh - historicalAvgKWh) / historicalAvgKWh * 100
}
