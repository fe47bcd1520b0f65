package aggregate

import (
	"sort"

	"tracker/internal/core"
)

// Bucket is the granularity of a trend series.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketMonth Bucket = "month"
)

// TrendPoint is the total spent in one bucket. Label is YYYY-MM-DD for daily
// buckets and YYYY-MM for monthly ones.
type TrendPoint struct {
	Label string  `json:"label"`
	Total float64 `json:"total"`
}

// Trend is the result of TrendSeries. Points is never nil.
type Trend struct {
	Bucket    Bucket       `json:"bucket"`
	Points    []TrendPoint `json:"points"`
	Anomalies []Anomaly    `json:"anomalies,omitempty"`
}

// TrendSeries buckets the transactions dated in r and returns one point per
// non-empty bucket, in chronological order.
func TrendSeries(ts []core.Transaction, r core.DateRange, bucket Bucket) (Trend, error) {
	if err := r.Validate(); err != nil {
		return Trend{}, err
	}
	layout := "2006-01-02"
	if bucket == BucketMonth {
		layout = "2006-01"
	} else {
		bucket = BucketDay
	}

	sums := make(map[string]*amountSum)
	var anomalies []Anomaly
	for _, t := range ts {
		in, err := matches(t, r)
		if err != nil {
			return Trend{}, err
		}
		if !in {
			continue
		}
		label := t.Date.Format(layout)
		if _, ok := sums[label]; !ok {
			sums[label] = new(amountSum)
		}
		if anomaly, bad := checkAmount(t); bad {
			anomalies = append(anomalies, anomaly)
			continue
		}
		sums[label].add(t.Amount)
	}

	points := make([]TrendPoint, 0, len(sums))
	for label, sum := range sums {
		points = append(points, TrendPoint{Label: label, Total: sum.value()})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return Trend{Bucket: bucket, Points: points, Anomalies: anomalies}, nil
}
