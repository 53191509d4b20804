package sensor

const (
	// DefaultAirQuality is used when a sample has no air quality key (µg/m³).
	DefaultAirQuality = 50.0
	// DefaultLightIntensity is used when a sample has no light key (lux).
	DefaultLightIntensity = 1000.0
)

// Metric names one of the four measured quantities.
type Metric string

const (
	Temperature    Metric = "temperature"
	Humidity       Metric = "humidity"
	AirQuality     Metric = "air_quality"
	LightIntensity Metric = "light_intensity"
)

// Metrics lists every metric in display order.
var Metrics = []Metric{Temperature, Humidity, AirQuality, LightIntensity}

// ParseMetric maps a metric name to a Metric.
func ParseMetric(s string) (Metric, bool) {
	for _, m := range Metrics {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// Value returns the metric's value for r.
//
// A nil result is excluded from averages and plotted as a gap. An explicit
// null is always nil. A missing temperature or humidity key is nil too, but
// a missing air quality or light intensity key falls back to its default.
func (m Metric) Value(r Reading) *float64 {
	p := r.field(m)
	if p == nil {
		return nil
	}
	if *p != nil || r.Null.Has(m) {
		return *p
	}
	switch m {
	case AirQuality:
		v := DefaultAirQuality
		return &v
	case LightIntensity:
		v := DefaultLightIntensity
		return &v
	default:
		return nil
	}
}

// Label is the axis label, unit included.
func (m Metric) Label() string {
	switch m {
	case Temperature:
		return "Temperature (°C)"
	case Humidity:
		return "Humidity (%)"
	case AirQuality:
		return "Air Quality (µg/m³)"
	case LightIntensity:
		return "Light Intensity (lux)"
	default:
		return string(m)
	}
}

// Title is the graph title for a single-series plot.
func (m Metric) Title() string {
	switch m {
	case Temperature:
		return "Temperature Over Time"
	case Humidity:
		return "Humidity Over Time"
	case AirQuality:
		return "Air Quality Over Time"
	case LightIntensity:
		return "Light Intensity Over Time"
	default:
		return string(m) + " Over Time"
	}
}

// Noun is the lower-case name used in sentences.
func (m Metric) Noun() string {
	switch m {
	case AirQuality:
		return "air quality"
	case LightIntensity:
		return "light intensity"
	default:
		return string(m)
	}
}
