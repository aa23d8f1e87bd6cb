// ABOUTME: FFT-based operational modal analysis substitute for the external OMA solver.
// ABOUTME: Computes the half-spectrum amplitude of the first sensor channel and picks the dominant peak.
package modal

import (
	"fmt"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DefaultSampleRate is the assumed sampling frequency in Hz when the upload
// carries no rate metadata.
const DefaultSampleRate = 100.0

// MinSamples is the minimum record length for a meaningful analysis.
const MinSamples = 100

// Pair is one frequency/amplitude sample of the spectrum.
type Pair struct {
	Frequency float64 `json:"frequency"`
	Amplitude float64 `json:"amplitude"`
}

// Analysis is the serializable result of one modal analysis run.
type Analysis struct {
	Pairs         []Pair  `json:"pairs"`
	SampleRate    float64 `json:"fs"`
	Channels      int     `json:"n_channels"`
	Samples       int     `json:"n_samples"`
	Resolution    float64 `json:"resolution_hz"`
	PeakFrequency float64 `json:"peak_frequency"`
}

// TimeColumn is the column excluded when extracting sensor channels.
const TimeColumn = "time"

// Analyze extracts the first sensor channel from an uploaded time-series
// table and computes its amplitude spectrum at the given sampling rate.
func Analyze(rows []map[string]any, sampleRate float64) (Analysis, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if len(rows) < MinSamples {
		return Analysis{}, fmt.Errorf("insufficient data: need at least %d samples, got %d", MinSamples, len(rows))
	}

	channels := channelNames(rows[0])
	if len(channels) == 0 {
		return Analysis{}, fmt.Errorf("no numeric sensor channel found (columns other than %q)", TimeColumn)
	}

	samples := make([]float64, 0, len(rows))
	for i, row := range rows {
		v, ok := numeric(row[channels[0]])
		if !ok {
			return Analysis{}, fmt.Errorf("row %d: non-numeric value in channel %q", i, channels[0])
		}
		samples = append(samples, v)
	}

	pairs := Spectrum(samples, sampleRate)
	return Analysis{
		Pairs:         pairs,
		SampleRate:    sampleRate,
		Channels:      len(channels),
		Samples:       len(samples),
		Resolution:    sampleRate / float64(len(samples)),
		PeakFrequency: peakFrequency(pairs),
	}, nil
}

// Spectrum computes the half-spectrum amplitude of a real-valued record.
func Spectrum(samples []float64, sampleRate float64) []Pair {
	fft := fourier.NewFFT(len(samples))
	coeffs := fft.Coefficients(nil, samples)

	pairs := make([]Pair, len(coeffs))
	for i, c := range coeffs {
		pairs[i] = Pair{
			Frequency: fft.Freq(i) * sampleRate,
			Amplitude: cmplx.Abs(c),
		}
	}
	return pairs
}

// peakFrequency returns the frequency of the largest non-DC amplitude.
func peakFrequency(pairs []Pair) float64 {
	var best Pair
	for _, p := range pairs[1:] {
		if p.Amplitude > best.Amplitude {
			best = p
		}
	}
	return best.Frequency
}

// channelNames lists the numeric non-time columns of a row in sorted order
// so channel selection is deterministic across runs.
func channelNames(row map[string]any) []string {
	var names []string
	for k, v := range row {
		if k == TimeColumn {
			continue
		}
		if _, ok := numeric(v); ok {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
