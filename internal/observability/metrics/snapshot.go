package metrics

import (
	"math"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Snapshot is a point-in-time summary of the intake metrics for the admin API.
type Snapshot struct {
	RequestsTotal    int64            `json:"requests_total"`
	RequestsByStatus map[string]int64 `json:"requests_by_status"`
	OCRCalls         int64            `json:"ocr_calls"`
	OCRP95Ms         float64          `json:"ocr_p95_ms"`
}

// TakeSnapshot reads the intake families from gatherer. Missing families
// leave their fields zero.
func TakeSnapshot(gatherer prometheus.Gatherer) Snapshot {
	snap := Snapshot{RequestsByStatus: map[string]int64{}}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return snap
	}

	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case requestsMetricName:
			for _, metric := range mf.Metric {
				if metric == nil || metric.GetCounter() == nil {
					continue
				}
				n := int64(metric.GetCounter().GetValue())
				snap.RequestsTotal += n
				snap.RequestsByStatus[labelValue(metric, "status")] += n
			}
		case ocrLatencyMetricName:
			snap.OCRCalls, snap.OCRP95Ms = ocrLatency(mf)
		}
	}
	return snap
}

func ocrLatency(family *dto.MetricFamily) (int64, float64) {
	cumulativeByUpper := map[float64]uint64{}
	var sampleCount uint64
	for _, metric := range family.Metric {
		if metric == nil {
			continue
		}
		h := metric.GetHistogram()
		if h == nil {
			continue
		}
		sampleCount += h.GetSampleCount()
		for _, b := range h.Bucket {
			if b == nil {
				continue
			}
			cumulativeByUpper[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if sampleCount == 0 {
		return 0, 0
	}

	uppers := make([]float64, 0, len(cumulativeByUpper))
	for upper := range cumulativeByUpper {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)
	return int64(sampleCount), histogramQuantile(0.95, sampleCount, uppers, cumulativeByUpper) * 1000
}

// histogramQuantile interpolates linearly inside the bucket holding the rank.
// Ranks past the last finite bucket report that bucket's upper bound.
func histogramQuantile(q float64, total uint64, uppers []float64, cumulativeByUpper map[float64]uint64) float64 {
	rank := q * float64(total)
	var prevUpper float64
	var prevCum uint64
	for _, upper := range uppers {
		if math.IsInf(upper, 1) {
			return prevUpper
		}
		cum := cumulativeByUpper[upper]
		if float64(cum) >= rank {
			inBucket := cum - prevCum
			if inBucket == 0 {
				return upper
			}
			return prevUpper + (upper-prevUpper)*(rank-float64(prevCum))/float64(inBucket)
		}
		prevUpper, prevCum = upper, cum
	}
	return prevUpper
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.Label {
		if lp != nil && lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
