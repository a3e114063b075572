package netmon

import "time"

// Quality is a coarse connectivity tier.
type Quality string

const (
	QualityOffline   Quality = "offline"
	QualityPoor      Quality = "poor"
	QualityFair      Quality = "fair"
	QualityGood      Quality = "good"
	QualityExcellent Quality = "excellent"
)

// Rank orders tiers from offline (0) to excellent (4).
func (q Quality) Rank() int {
	switch q {
	case QualityPoor:
		return 1
	case QualityFair:
		return 2
	case QualityGood:
		return 3
	case QualityExcellent:
		return 4
	default:
		return 0
	}
}

// Thresholds are mean latencies at or above which quality degrades.
type Thresholds struct {
	Fair time.Duration
	Good time.Duration
}

// ProbeResult is one endpoint measurement.
type ProbeResult struct {
	Endpoint string
	OK       bool
	Latency  time.Duration
	Err      error
}

// Measurement aggregates a probe round.
type Measurement struct {
	Successes   int
	Total       int
	SuccessRate float64
	MeanLatency time.Duration
}

func Measure(results []ProbeResult) Measurement {
	m := Measurement{Total: len(results)}
	var sum time.Duration
	for _, r := range results {
		if !r.OK {
			continue
		}
		m.Successes++
		sum += r.Latency
	}
	if m.Total > 0 {
		m.SuccessRate = float64(m.Successes) / float64(m.Total)
	}
	if m.Successes > 0 {
		m.MeanLatency = sum / time.Duration(m.Successes)
	}
	return m
}

// Classify maps a probe round to a tier. offline wins over everything.
// More successes or a lower mean latency never yield a worse tier.
func Classify(online bool, m Measurement, th Thresholds) Quality {
	switch {
	case !online:
		return QualityOffline
	case m.Successes == 0:
		return QualityPoor
	case m.Successes == 1 || m.MeanLatency >= th.Fair:
		return QualityFair
	case m.MeanLatency >= th.Good:
		return QualityGood
	default:
		return QualityExcellent
	}
}
