package query

import (
	"fmt"
	"strings"
)

const (
	// AirQualitySafeMax is the highest PM2.5 level (µg/m³) called safe.
	AirQualitySafeMax = 50.0
	// LightSuitableMin and LightSuitableMax bound the lux range most crops need.
	LightSuitableMin = 500.0
	LightSuitableMax = 2000.0
)

const unassessable = "not assessable without readings"

const generalHelp = "I can help with graphs, stats, climate, crops, air quality, light, or recommendations. What would you like?"

var cropTable = []string{
	"- **Rice**: Needs 25-35°C, 70-80% humidity, good air (<50 µg/m³), 1000-2000 lux. Possible with irrigation and cleaner air.",
	"- **Maize**: 25-33°C, 50-75% humidity, tolerates moderate air, 1000-2000 lux. Suitable.",
	"- **Cassava**: 25-35°C, 60-80% humidity, moderate air OK, 800-1500 lux. Excellent.",
	"- **Mango**: 24-35°C, 50-70% humidity, prefers cleaner air, 1000-2000 lux. Suitable if air improves.",
}

var recommendations = []string{
	"- Use shade nets for heat.",
	"- Irrigate if humidity drops below 60%.",
	"- Improve air quality if >50 µg/m³ (ventilation/filters).",
	"- Light is sufficient; adjust for shade-loving plants.",
}

// Fallback is the fixed answer used when the model is unavailable.
func Fallback(topic Topic, c Context) string {
	switch topic {
	case TopicClimate:
		return fmt.Sprintf("Based on the sensor data (%s):\n"+
			"- Temperature: %s°C\n"+
			"- Humidity: %s%%\n"+
			"- Air Quality (PM2.5): %s µg/m³\n"+
			"- Light Intensity: %s lux\n"+
			"This suggests a warm, moderately humid environment with variable air quality and bright light.",
			DescribeDates(c.Dates), c.temp(), c.hum(), c.air(), c.light())

	case TopicCrops:
		header := fmt.Sprintf("Crop suitability (Temp: %s°C, Humidity: %s%%, Air: %s µg/m³, Light: %s lux):\n",
			c.temp(), c.hum(), c.air(), c.light())
		return header + strings.Join(cropTable, "\n")

	case TopicRecommendations:
		header := fmt.Sprintf("Recommendations (Temp: %s°C, Humidity: %s%%, Air: %s µg/m³, Light: %s lux):\n",
			c.temp(), c.hum(), c.air(), c.light())
		return header + strings.Join(recommendations, "\n")

	case TopicAirQuality:
		safety := unassessable
		if v := c.Averages.AirQuality; v != nil {
			safety = "potentially unhealthy"
			if *v <= AirQualitySafeMax {
				safety = "safe"
			}
		}
		return fmt.Sprintf("Air quality (PM2.5) is %s µg/m³. This is %s. Levels above 50 µg/m³ may affect sensitive crops or health.",
			c.air(), safety)

	case TopicLight:
		suitability := unassessable
		if v := c.Averages.LightIntensity; v != nil {
			suitability = "may need adjustment"
			if *v >= LightSuitableMin && *v <= LightSuitableMax {
				suitability = "suitable for most plants"
			}
		}
		return fmt.Sprintf("Light intensity is %s lux. This is %s. Most crops need 500-2000 lux.", c.light(), suitability)

	default:
		return generalHelp
	}
}
