// Package summary condenses rate samples into quantiles: over the retained
// window (HDR histograms, rebuilt each tick) and over an interface's whole
// session (DDSketch, streaming).
package summary

import (
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/shini4i/netchoo/internal/stats"
)

// Histogram range in bytes per second. 1 TiB/s comfortably covers 100 Gbit/s
// links; faster readings are clamped.
const (
	histMin     = 1
	histMax     = 1 << 40
	histSigFigs = 2
)

// Quantiles summarises one direction.
type Quantiles struct {
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Max  float64 `json:"max"`
}

// WindowStats summarises the samples currently in an interface's window.
type WindowStats struct {
	Samples int       `json:"samples"`
	Rx      Quantiles `json:"rx"`
	Tx      Quantiles `json:"tx"`
}

// Windower computes WindowStats. It keeps its histograms between calls to
// avoid reallocating them every tick. Not safe for concurrent use.
type Windower struct {
	rx *hdrhistogram.Histogram
	tx *hdrhistogram.Histogram
}

// NewWindower allocates the histograms.
func NewWindower() *Windower {
	return &Windower{
		rx: hdrhistogram.New(histMin, histMax, histSigFigs),
		tx: hdrhistogram.New(histMin, histMax, histSigFigs),
	}
}

// Summarize returns quantiles over samples.
func (w *Windower) Summarize(samples []stats.RateSample) WindowStats {
	w.rx.Reset()
	w.tx.Reset()

	out := WindowStats{Samples: len(samples)}
	if len(samples) == 0 {
		return out
	}

	var rxSum, txSum float64
	for _, s := range samples {
		rx, tx := finite(s.RxRate), finite(s.TxRate)
		_ = w.rx.RecordValue(histValue(rx))
		_ = w.tx.RecordValue(histValue(tx))
		rxSum += rx
		txSum += tx
		out.Rx.Max = max(out.Rx.Max, rx)
		out.Tx.Max = max(out.Tx.Max, tx)
	}

	n := float64(len(samples))
	out.Rx.Mean = rxSum / n
	out.Tx.Mean = txSum / n
	fillQuantiles(&out.Rx, w.rx)
	fillQuantiles(&out.Tx, w.tx)
	return out
}

func fillQuantiles(q *Quantiles, h *hdrhistogram.Histogram) {
	q.P50 = float64(h.ValueAtQuantile(50))
	q.P95 = float64(h.ValueAtQuantile(95))
	q.P99 = float64(h.ValueAtQuantile(99))
}

// finite maps NaN and negative rates to zero.
func finite(rate float64) float64 {
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return rate
}

func histValue(rate float64) int64 {
	if math.IsNaN(rate) || rate <= 0 {
		return 0
	}
	if rate >= histMax {
		return histMax
	}
	return int64(math.Round(rate))
}
