package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/i474232898/city-weather-search/internal/visitor"
	"github.com/i474232898/city-weather-search/internal/weather"
)

var validate = validator.New()

const (
	visitorCookie = "user_id"
	visitorLocal  = "visitor_id"
)

// Options tunes the HTTP boundary.
type Options struct {
	RequestTimeout  time.Duration
	MaxForecastDays int
	CookieMaxAge    time.Duration
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, opts Options, logger *slog.Logger) {
	api := app.Group("/api", identifyVisitor(opts.CookieMaxAge))

	api.Post("/v1/search", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := req.bind(c, opts.MaxForecastDays); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), opts.RequestTimeout)
		defer cancel()

		result, err := service.Search(ctx, weather.SearchRequest{
			VisitorID:    visitorID(c),
			CityName:     req.CityName,
			ForecastDays: req.ForecastDays,
		})
		if err != nil {
			return searchError(err, logger)
		}

		return c.JSON(result)
	})

	api.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(service.Stats())
	})

	api.Get("/user/history", func(c *fiber.Ctx) error {
		id := visitorID(c)
		return c.JSON(fiber.Map{
			"user_id": id,
			"history": service.History(id),
		})
	})
}

// ErrorHandler renders every handler error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// identifyVisitor attaches a visitor id to every request and hands a newly
// minted id back to the browser as a cookie.
func identifyVisitor(maxAge time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Fiber strings alias the request buffer; the id outlives the request as a store key.
		existing := utils.CopyString(c.Cookies(visitorCookie))
		id := visitor.Identify(existing)
		if id != existing {
			c.Cookie(&fiber.Cookie{
				Name:     visitorCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(maxAge.Seconds()),
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(visitorLocal, id)
		return c.Next()
	}
}

func visitorID(c *fiber.Ctx) string {
	id, _ := c.Locals(visitorLocal).(string)
	return id
}

// searchError keeps failure kinds distinguishable for the client.
func searchError(err error, logger *slog.Logger) error {
	var notFound *weather.CityNotFoundError
	switch {
	case errors.As(err, &notFound):
		return fiber.NewError(fiber.StatusNotFound, notFound.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fiber.NewError(fiber.StatusGatewayTimeout, "weather lookup timed out")
	case errors.Is(err, weather.ErrMalformedResponse), errors.Is(err, weather.ErrMisalignedSeries):
		logger.Error("upstream broke its response contract", "error", err)
		return fiber.NewError(fiber.StatusBadGateway, "unexpected response from weather service")
	case errors.Is(err, weather.ErrUpstream):
		return fiber.NewError(fiber.StatusBadGateway, "weather service unavailable")
	case errors.Is(err, weather.ErrUnknownWeatherCode):
		logger.Error("weather code missing from interpretation table", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to interpret forecast")
	default:
		logger.Error("search failed", "error", err)
		return fiber.NewError(fiber.StatusInternalServerError, "search failed")
	}
}

// searchRequest holds the search form (urlencoded, multipart or JSON).
type searchRequest struct {
	CityName     string `json:"city_name" form:"city_name" validate:"required"`
	ForecastDays int    `json:"forecast_days" form:"forecast_days" validate:"required,min=1"`
}

func (r *searchRequest) bind(c *fiber.Ctx, maxDays int) error {
	if err := c.BodyParser(r); err != nil {
		return fmt.Errorf("invalid search form: %w", err)
	}
	r.CityName = utils.CopyString(r.CityName)
	if err := validate.Struct(r); err != nil {
		return err
	}
	if maxDays > 0 && r.ForecastDays > maxDays {
		return fmt.Errorf("forecast_days must be at most %d", maxDays)
	}
	return nil
}
