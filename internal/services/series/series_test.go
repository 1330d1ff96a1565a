package series

import (
	"reflect"
	"strconv"
	"testing"

	"finsight/internal/models"
)

func TestRangePoints(t *testing.T) {
	tests := []struct {
		timeRange string
		want      int
	}{
		{"1M", 4},
		{"3M", 12},
		{"6M", 24},
		{"1Y", 48},
		{"5Y", 60},
		{"10Y", 12},
		{"", 12},
	}

	for _, tt := range tests {
		if got := RangePoints(tt.timeRange); got != tt.want {
			t.Errorf("RangePoints(%q) = %d, want %d", tt.timeRange, got, tt.want)
		}
	}
}

func TestGenerateRevenueQuarterMonthly(t *testing.T) {
	got := Generate("revenue", "3M", "monthly")

	want := []models.ChartPoint{
		{Label: "1", Value: 100},
		{Label: "5", Value: 114},
		{Label: "9", Value: 108},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Generate(revenue, 3M, monthly) = %v, want %v", got, want)
	}
}

func TestGenerateExpensesMonthDaily(t *testing.T) {
	got := Generate("expenses", "1M", "daily")

	if len(got) != 4 {
		t.Fatalf("Expected 4 points, got %d", len(got))
	}
	if got[0].Label != "1" || got[0].Value != 70 {
		t.Errorf("First point = %v, want {1 70}", got[0])
	}
}

func TestGenerateGrowthFiveYearsWeekly(t *testing.T) {
	got := Generate("growth", "5Y", "weekly")

	if len(got) != 30 {
		t.Fatalf("Expected 30 points, got %d", len(got))
	}

	// Weekly thinning keeps even dense indexes, so labels run 1,3,5,...,59.
	for i, p := range got {
		wantLabel := strconv.Itoa(2*i + 1)
		if p.Label != wantLabel {
			t.Errorf("Point %d has label %q, want %q", i, p.Label, wantLabel)
		}
	}
}

func TestGenerateLengths(t *testing.T) {
	tests := []struct {
		timeRange   string
		granularity string
		want        int
	}{
		{"1M", "daily", 4},
		{"1M", "weekly", 2},
		{"1M", "monthly", 1},
		{"1Y", "daily", 48},
		{"1Y", "weekly", 24},
		{"1Y", "monthly", 12},
		{"5Y", "monthly", 15},
	}

	for _, tt := range tests {
		got := Generate("revenue", tt.timeRange, tt.granularity)
		if len(got) != tt.want {
			t.Errorf("Generate(revenue, %s, %s) has %d points, want %d",
				tt.timeRange, tt.granularity, len(got), tt.want)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	first := Generate("growth", "1Y", "weekly")
	second := Generate("growth", "1Y", "weekly")

	if !reflect.DeepEqual(first, second) {
		t.Error("Generate must be deterministic for identical inputs")
	}
}

func TestGenerateUnknownMetricUsesGrowthBase(t *testing.T) {
	unknown := Generate("volatility", "1M", "daily")
	growth := Generate("growth", "1M", "daily")

	if !reflect.DeepEqual(unknown, growth) {
		t.Errorf("Unknown metric should use the growth base, got %v want %v", unknown, growth)
	}
}
