package sensor

import "math"

// Average is the arithmetic mean of the metric over samples where the metric
// has a value (defaults applied first). ok is false when no sample counts.
func Average(samples []Sample, m Metric) (avg float64, ok bool) {
	var (
		sum float64
		n   int
	)
	for _, s := range samples {
		v := m.Value(s.Reading)
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Averages holds the mean of each metric; a nil field means no valid data.
type Averages struct {
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	AirQuality     *float64 `json:"air_quality"`
	LightIntensity *float64 `json:"light_intensity"`
}

// ComputeAverages averages every metric over samples.
func ComputeAverages(samples []Sample) Averages {
	var a Averages
	for _, m := range Metrics {
		avg, ok := Average(samples, m)
		if !ok {
			continue
		}
		v := avg
		switch m {
		case Temperature:
			a.Temperature = &v
		case Humidity:
			a.Humidity = &v
		case AirQuality:
			a.AirQuality = &v
		case LightIntensity:
			a.LightIntensity = &v
		}
	}
	return a
}

// Of returns the average for m, or nil when there is none.
func (a Averages) Of(m Metric) *float64 {
	switch m {
	case Temperature:
		return a.Temperature
	case Humidity:
		return a.Humidity
	case AirQuality:
		return a.AirQuality
	case LightIntensity:
		return a.LightIntensity
	default:
		return nil
	}
}

// Series is one metric laid out over time for plotting. Values holds NaN
// where the sample had no value.
type Series struct {
	Metric Metric
	Labels []string
	Values []float64
}

// BuildSeries extracts the metric from every sample, in order.
func BuildSeries(samples []Sample, m Metric) Series {
	s := Series{
		Metric: m,
		Labels: make([]string, len(samples)),
		Values: make([]float64, len(samples)),
	}
	for i, sample := range samples {
		s.Labels[i] = sample.Label()
		if v := m.Value(sample.Reading); v != nil {
			s.Values[i] = *v
		} else {
			s.Values[i] = math.NaN()
		}
	}
	return s
}

// Present returns the number of non-missing values in the series.
func (s Series) Present() int {
	n := 0
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}
