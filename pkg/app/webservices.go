package app

import (
	"errors"
	"net/http"
	"time"

	"ppgd/pkg/max30102"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleData returns the most recent sample batch.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		app.lastBatch.Lock()
		batch := app.lastBatch.data
		app.lastBatch.Unlock()

		if batch.Time.IsZero() {
			ctx.Status(http.StatusNoContent)
			return nil
		}
		return ctx.JSON(batch)
	}
}

// HandleConfig returns the device configuration mirror, acquisition state
// and engine counters.
func (app *App) HandleConfig() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request config")

		return ctx.JSON(app.sensor.Snapshot())
	}
}

// HandleTemperature runs a die temperature conversion on demand.
func (app *App) HandleTemperature() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request temperature")

		celsius, err := app.sensor.Temperature()
		if errors.Is(err, max30102.ErrTimeout) {
			ctx.Status(http.StatusGatewayTimeout)
			return ctx.JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			ctx.Status(http.StatusInternalServerError)
			return ctx.JSON(fiber.Map{"error": err.Error()})
		}

		app.lastTemp.Lock()
		app.lastTemp.celsius = celsius
		app.lastTemp.Unlock()

		return ctx.JSON(fiber.Map{
			"time":    time.Now().Format(time.RFC3339),
			"celsius": celsius,
		})
	}
}
