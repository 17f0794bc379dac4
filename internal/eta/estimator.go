// Package eta projects a completion time for the remaining work of an upload
// run from the throughput of already-completed uploads.
package eta

import "time"

// Sample is one completed upload's timing. Samples must be kept in
// completion order; the most recent sample carries the highest weight.
type Sample struct {
	Bytes    int64
	Duration time.Duration
}

// Speed returns the sample's instantaneous throughput in bytes per second.
func (s Sample) Speed() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Bytes) / s.Duration.Seconds()
}

// WeightedSpeed computes the recency-weighted average throughput in bytes
// per second. Samples are in completion order, so sample i gets weight i+1:
// the newest sample weighs n and the oldest weighs 1. Returns false when no
// usable sample exists.
func WeightedSpeed(samples []Sample) (float64, bool) {
	n := len(samples)
	if n == 0 {
		return 0, false
	}

	var weightedSum, weightTotal float64
	for i, s := range samples {
		speed := s.Speed()
		if speed <= 0 {
			continue
		}
		weight := float64(i + 1)
		weightedSum += speed * weight
		weightTotal += weight
	}
	if weightTotal == 0 {
		return 0, false
	}
	return weightedSum / weightTotal, true
}

// EfficiencyFactor models diminishing returns from concurrent transfers
// sharing bandwidth: min(0.8 * parallel, 1.0).
func EfficiencyFactor(parallel int) float64 {
	f := 0.8 * float64(parallel)
	if f > 1.0 {
		return 1.0
	}
	return f
}

// ProjectedCompletion estimates when remainingBytes will finish uploading at
// the given parallelism. Returns false when no estimate is available yet.
// The estimate is recomputed on demand and intentionally volatile: it
// tightens as more samples arrive.
func ProjectedCompletion(now time.Time, samples []Sample, remainingBytes int64, parallel int) (time.Time, bool) {
	if remainingBytes <= 0 {
		return time.Time{}, false
	}
	speed, ok := WeightedSpeed(samples)
	if !ok {
		return time.Time{}, false
	}

	effective := speed * float64(parallel) * EfficiencyFactor(parallel)
	if effective <= 0 {
		return time.Time{}, false
	}

	remaining := time.Duration(float64(remainingBytes) / effective * float64(time.Second))
	return now.Add(remaining), true
}

// SessionDuration returns (end ?? now) - start for a run.
func SessionDuration(start time.Time, end *time.Time, now time.Time) time.Duration {
	if end != nil {
		return end.Sub(start)
	}
	return now.Sub(start)
}
