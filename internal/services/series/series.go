// Package series generates the deterministic demo time series rendered when
// no real market data is available. Output depends only on the inputs.
package series

import (
	"math"
	"strconv"

	"finsight/internal/models"
)

var rangePoints = map[string]int{
	"1M": 4,
	"3M": 12,
	"6M": 24,
	"1Y": 48,
	"5Y": 60,
}

// RangePoints returns the dense point count for a time range, defaulting to 12
// for unknown ranges.
func RangePoints(timeRange string) int {
	if n, ok := rangePoints[timeRange]; ok {
		return n
	}
	return 12
}

// Generate produces the synthetic series for a metric over a time range,
// thinned by granularity. Labels are 1-based positions in the dense series and
// survive thinning unchanged, so a monthly 3M series is labeled "1","5","9".
func Generate(metric, timeRange, granularity string) []models.ChartPoint {
	base := metricBase(metric)
	points := RangePoints(timeRange)

	data := make([]models.ChartPoint, 0, points)
	for i := 0; i < points; i++ {
		switch granularity {
		case "weekly":
			if i%2 != 0 {
				continue
			}
		case "monthly":
			if i%4 != 0 {
				continue
			}
		}
		value := base + math.Round(math.Sin(float64(i)/3)*10) + float64(i%5)
		data = append(data, models.ChartPoint{
			Label: strconv.Itoa(i + 1),
			Value: value,
		})
	}
	return data
}

func metricBase(metric string) float64 {
	switch metric {
	case "revenue":
		return 100
	case "expenses":
		return 70
	default:
		return 10
	}
}
