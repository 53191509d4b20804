package query

import (
	"strings"

	"github.com/i474232898/sensor-assistant/internal/common"
	"github.com/i474232898/sensor-assistant/internal/sensor"
)

// Kind is the broad category of a query.
type Kind int

const (
	// KindGraph asks for a plot. Zero metrics means the user must say which.
	KindGraph Kind = iota
	// KindStatistic asks for the average of one metric.
	KindStatistic
	// KindOpenEnded is everything else; it goes to the model.
	KindOpenEnded
)

func (k Kind) String() string {
	switch k {
	case KindGraph:
		return "graph"
	case KindStatistic:
		return "statistic"
	case KindOpenEnded:
		return "open-ended"
	default:
		return "unknown"
	}
}

// Topic narrows an open-ended question.
type Topic int

const (
	TopicGeneral Topic = iota
	TopicClimate
	TopicCrops
	TopicRecommendations
	TopicAirQuality
	TopicLight
)

func (t Topic) String() string {
	switch t {
	case TopicClimate:
		return "climate"
	case TopicCrops:
		return "crops"
	case TopicRecommendations:
		return "recommendations"
	case TopicAirQuality:
		return "air-quality"
	case TopicLight:
		return "light"
	default:
		return "general"
	}
}

// Intent is the outcome of classifying a query.
type Intent struct {
	Kind Kind
	// Metrics holds the series to plot (KindGraph, 0..2) or the single
	// metric to average (KindStatistic).
	Metrics []sensor.Metric
	Topic   Topic
}

// Classify maps free text to an Intent. Matching is case-insensitive
// substring search and the first rule that matches wins, so the order of
// the checks below is part of the behaviour.
func Classify(query string) Intent {
	q := strings.ToLower(query)

	if common.HasAny(q, "graph", "plot") {
		switch {
		case common.HasAll(q, "temperature", "humidity"):
			return Intent{Kind: KindGraph, Metrics: []sensor.Metric{sensor.Temperature, sensor.Humidity}}
		case strings.Contains(q, "temperature") || common.HasAll(q, "graph", "temp"):
			return graphOf(sensor.Temperature)
		case strings.Contains(q, "humidity"):
			return graphOf(sensor.Humidity)
		case common.HasAll(q, "air", "quality"):
			return graphOf(sensor.AirQuality)
		case common.HasAny(q, "light", "ldr"):
			return graphOf(sensor.LightIntensity)
		default:
			return Intent{Kind: KindGraph}
		}
	}

	if strings.Contains(q, "average") {
		switch {
		case strings.Contains(q, "temperature"):
			return statisticOf(sensor.Temperature)
		case strings.Contains(q, "humidity"):
			return statisticOf(sensor.Humidity)
		case common.HasAll(q, "air", "quality"):
			return statisticOf(sensor.AirQuality)
		case common.HasAny(q, "light", "ldr"):
			return statisticOf(sensor.LightIntensity)
		}
	}

	return Intent{Kind: KindOpenEnded, Topic: topicOf(q)}
}

func graphOf(m sensor.Metric) Intent {
	return Intent{Kind: KindGraph, Metrics: []sensor.Metric{m}}
}

func statisticOf(m sensor.Metric) Intent {
	return Intent{Kind: KindStatistic, Metrics: []sensor.Metric{m}}
}

// topicOf expects an already lower-cased query.
func topicOf(q string) Topic {
	switch {
	case common.HasAny(q, "climatic", "climate", "condition"):
		return TopicClimate
	case common.HasAny(q, "crop", "growth", "grow"):
		return TopicCrops
	// "remmodate" is a misspelling users actually type.
	case common.HasAny(q, "recommend", "remmodate"):
		return TopicRecommendations
	case common.HasAll(q, "air", "quality"):
		return TopicAirQuality
	case common.HasAny(q, "light", "ldr", "bright"):
		return TopicLight
	default:
		return TopicGeneral
	}
}
