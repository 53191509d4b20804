package query

import (
	"fmt"

	"github.com/i474232898/sensor-assistant/internal/common"
	"github.com/i474232898/sensor-assistant/internal/sensor"
)

// Context is the data an open-ended answer is grounded on.
type Context struct {
	Dates    []string
	Averages sensor.Averages
}

// formatValue renders an average with one decimal, or N/A when missing.
func formatValue(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}

// DescribeDates names the covered dates for prompts and greetings.
func DescribeDates(dates []string) string {
	if len(dates) == 0 {
		return "no readings yet"
	}
	return common.JoinAnd(dates)
}

func (c Context) temp() string  { return formatValue(c.Averages.Temperature) }
func (c Context) hum() string   { return formatValue(c.Averages.Humidity) }
func (c Context) air() string   { return formatValue(c.Averages.AirQuality) }
func (c Context) light() string { return formatValue(c.Averages.LightIntensity) }

// SystemPrompt carries the four averages to the model.
func SystemPrompt(name string, c Context) string {
	return fmt.Sprintf(
		"You are %s, an assistant for a farm sensor station. Use this sensor data (%s): "+
			"Temperature=%s°C, Humidity=%s%%, Air Quality (PM2.5)=%s µg/m³, Light Intensity=%s lux. "+
			"Handle missing data gracefully and provide detailed responses.",
		name, DescribeDates(c.Dates), c.temp(), c.hum(), c.air(), c.light(),
	)
}

// UserPrompt rewrites the query for known topics so the model gets the
// numbers in the question itself. General questions pass through as typed.
func UserPrompt(topic Topic, query string, c Context) string {
	switch topic {
	case TopicClimate:
		return fmt.Sprintf("Describe the climatic conditions for temperature %s°C, humidity %s%%, air quality %s µg/m³, and light intensity %s lux.",
			c.temp(), c.hum(), c.air(), c.light())
	case TopicCrops:
		return fmt.Sprintf("What crops can grow well with temperature %s°C, humidity %s%%, air quality %s µg/m³, and light intensity %s lux? Include suitability details.",
			c.temp(), c.hum(), c.air(), c.light())
	case TopicRecommendations:
		return fmt.Sprintf("Provide recommendations for managing a farm with temperature %s°C, humidity %s%%, air quality %s µg/m³, and light intensity %s lux.",
			c.temp(), c.hum(), c.air(), c.light())
	case TopicAirQuality:
		return fmt.Sprintf("Analyze air quality with PM2.5 at %s µg/m³. Is it safe? What does it mean?", c.air())
	case TopicLight:
		return fmt.Sprintf("Analyze light intensity at %s lux. Is it suitable for plants? What does it mean?", c.light())
	default:
		return query
	}
}
