package httpapi

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/sensor-assistant/internal/query"
)

const graphRoute = "/api/v1/graph"

var validate = validator.New()

// Session is the query session served over HTTP.
type Session interface {
	Ask(ctx context.Context, q string) query.Response
	Reload(ctx context.Context) error
	Notices() []string
	Snapshot() *query.Snapshot
}

// Graphs locates the latest rendered graph.
type Graphs interface {
	Latest() (string, bool)
}

// NewApp builds the Fiber app with the shared error handler, middleware and
// health endpoint.
func NewApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               name,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Open-ended queries wait on the model.
		WriteTimeout: 60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": name,
		})
	})
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. graphs may be nil.
func RegisterRoutes(app *fiber.App, session Session, graphs Graphs) {
	v1 := app.Group("/api/v1")

	v1.Post("/query", func(c *fiber.Ctx) error {
		var req queryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		resp := session.Ask(c.UserContext(), req.Query)
		// Load failures from background reloads surface on the next reply.
		out := queryResponse{Response: resp.Text, Graph: resp.GraphPath, Notices: session.Notices()}
		if resp.GraphPath != "" {
			out.GraphURL = graphRoute
		}
		return c.JSON(out)
	})

	v1.Get("/averages", func(c *fiber.Ctx) error {
		snap := session.Snapshot()
		return c.JSON(fiber.Map{
			"dates":     snap.Dates,
			"samples":   len(snap.Samples),
			"averages":  snap.Averages,
			"loaded_at": snap.LoadedAt,
		})
	})

	v1.Get("/readings", func(c *fiber.Ctx) error {
		req := readingsQuery{Date: c.Query("date")}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		readings := readingsOn(session.Snapshot(), req.Date)
		if len(readings) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no readings for requested date")
		}
		return c.JSON(fiber.Map{
			"date":     req.Date,
			"readings": readings,
		})
	})

	v1.Get("/graph", func(c *fiber.Ctx) error {
		if graphs == nil {
			return fiber.NewError(fiber.StatusNotFound, "no graph rendered yet")
		}
		path, ok := graphs.Latest()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no graph rendered yet")
		}

		// Read per request: the file is replaced on every render.
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fiber.NewError(fiber.StatusNotFound, "no graph rendered yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read graph")
		}
		c.Type("png")
		return c.Send(data)
	})

	v1.Post("/reload", func(c *fiber.Ctx) error {
		err := session.Reload(c.UserContext())
		out := fiber.Map{
			"ok":      err == nil,
			"dates":   session.Snapshot().Dates,
			"notices": session.Notices(),
		}
		if err != nil {
			out["error"] = err.Error()
		}
		return c.JSON(out)
	})
}

// queryRequest is the body of a query.
type queryRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

type queryResponse struct {
	Response string   `json:"response"`
	Graph    string   `json:"graph,omitempty"`
	GraphURL string   `json:"graph_url,omitempty"`
	Notices  []string `json:"notices,omitempty"`
}

// readingsQuery holds query parameters for the readings endpoint.
type readingsQuery struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

type timedReading struct {
	Time           string   `json:"time"`
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	AirQuality     *float64 `json:"air_quality"`
	LightIntensity *float64 `json:"light_intensity"`
}

func readingsOn(snap *query.Snapshot, date string) []timedReading {
	var out []timedReading
	for _, s := range snap.Samples {
		if s.Date == date {
			out = append(out, timedReading{
				Time:           s.Time,
				Temperature:    s.Temperature,
				Humidity:       s.Humidity,
				AirQuality:     s.AirQuality,
				LightIntensity: s.LightIntensity,
			})
		}
	}
	return out
}
