package bench

import "testing"

func TestPercentile_NearestRank(t *testing.T) {
	latencies := []int64{10, 20, 30, 40, 50}

	if p50 := Percentile(latencies, 50); p50 != 30 {
		t.Errorf("p50 = %d, want 30", p50)
	}
	if p95 := Percentile(latencies, 95); p95 != 50 {
		t.Errorf("p95 = %d, want 50", p95)
	}
}

func TestPercentile_P50NeverExceedsP95(t *testing.T) {
	samples := [][]int64{
		{1},
		{5, 5, 5},
		{100, 1, 50, 2, 99, 3},
		{7, 7, 7, 7, 7, 7, 7, 1000},
	}
	for _, latencies := range samples {
		p50 := Percentile(latencies, 50)
		p95 := Percentile(latencies, 95)
		if p50 > p95 {
			t.Errorf("p50 %d > p95 %d for %v", p50, p95, latencies)
		}
	}
}

func TestPercentile_Empty(t *testing.T) {
	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile(nil) = %d, want 0", got)
	}
}

func TestPercentile_Unsorted(t *testing.T) {
	if got := Percentile([]int64{50, 10, 40, 20, 30}, 50); got != 30 {
		t.Errorf("p50 of unsorted = %d, want 30", got)
	}
}

func TestAnyExpected(t *testing.T) {
	if !anyExpected([]string{"Login", "UserService"}, []string{"UserService"}) {
		t.Error("expected a hit")
	}
	if anyExpected([]string{"Login"}, []string{"UserService"}) {
		t.Error("expected a miss")
	}
	if anyExpected([]string{"Login"}, nil) {
		t.Error("no expectations can never hit")
	}
}
