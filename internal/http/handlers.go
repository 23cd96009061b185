package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/api"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/dashboard"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
)

// Views are the controllers served over HTTP. All fields are required.
type Views struct {
	Dashboard *dashboard.Dashboard
	Device    *dashboard.DeviceDetail
	Anomalies *dashboard.Anomalies
	Forecast  *dashboard.Forecast
	Relays    *dashboard.RelayControl
	Chat      *dashboard.ChatSession
}

func Register(app *fiber.App, v *Views) {
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	g := app.Group("/api")

	g.Get("/dashboard", func(c *fiber.Ctx) error {
		return c.JSON(v.Dashboard.View())
	})

	// Device detail. Every route selects :id first so the editor always acts
	// on the device in the URL.
	g.Get("/devices/:id", func(c *fiber.Ctx) error {
		if err := v.Device.SetDevice(c.UserContext(), c.Params("id")); isClientError(err) {
			return fail(c, err)
		}
		return c.JSON(v.Device.View())
	})
	deviceEditor := func(c *fiber.Ctx) (*dashboard.ThresholdEditor, error) {
		if err := v.Device.SetDevice(c.UserContext(), c.Params("id")); isClientError(err) {
			return nil, err
		}
		return v.Device.Editor(), nil
	}
	g.Post("/devices/:id/threshold/edit", func(c *fiber.Ctx) error {
		ed, err := deviceEditor(c)
		if err != nil {
			return fail(c, err)
		}
		ed.Edit()
		return c.JSON(v.Device.View())
	})
	g.Post("/devices/:id/threshold/draft", func(c *fiber.Ctx) error {
		ed, err := deviceEditor(c)
		if err != nil {
			return fail(c, err)
		}
		if err := setDraft(c, ed); err != nil {
			return fail(c, err)
		}
		return c.JSON(v.Device.View())
	})
	g.Post("/devices/:id/threshold/cancel", func(c *fiber.Ctx) error {
		ed, err := deviceEditor(c)
		if err != nil {
			return fail(c, err)
		}
		ed.Cancel()
		return c.JSON(v.Device.View())
	})
	g.Post("/devices/:id/threshold/save", func(c *fiber.Ctx) error {
		if _, err := deviceEditor(c); err != nil {
			return fail(c, err)
		}
		if err := v.Device.SaveThreshold(c.UserContext()); err != nil {
			return failWith(c, err, v.Device.View())
		}
		return c.JSON(v.Device.View())
	})

	// Anomalies. Without ?device= the current selection is kept; the
	// default device is only loaded when nothing was selected yet.
	g.Get("/anomalies", func(c *fiber.Ctx) error {
		device := c.Query("device")
		if device == "" && v.Anomalies.View().Device != "" {
			return c.JSON(v.Anomalies.View())
		}
		if err := v.Anomalies.Select(c.UserContext(), device); isClientError(err) {
			return fail(c, err)
		}
		return c.JSON(v.Anomalies.View())
	})
	// The editor routes act on the current selection, loading the default
	// device if nothing was selected yet.
	anomalyEditor := func(c *fiber.Ctx) *dashboard.ThresholdEditor {
		if v.Anomalies.View().Device == "" {
			v.Anomalies.Select(c.UserContext(), "")
		}
		return v.Anomalies.Editor()
	}
	g.Post("/anomalies/threshold/edit", func(c *fiber.Ctx) error {
		anomalyEditor(c).Edit()
		return c.JSON(v.Anomalies.View())
	})
	g.Post("/anomalies/threshold/draft", func(c *fiber.Ctx) error {
		if err := setDraft(c, anomalyEditor(c)); err != nil {
			return fail(c, err)
		}
		return c.JSON(v.Anomalies.View())
	})
	g.Post("/anomalies/threshold/cancel", func(c *fiber.Ctx) error {
		anomalyEditor(c).Cancel()
		return c.JSON(v.Anomalies.View())
	})
	g.Post("/anomalies/threshold/save", func(c *fiber.Ctx) error {
		anomalyEditor(c)
		if err := v.Anomalies.SaveThreshold(c.UserContext()); err != nil {
			return failWith(c, err, v.Anomalies.View())
		}
		return c.JSON(v.Anomalies.View())
	})

	// Forecast. Without ?days= the current horizon is kept.
	g.Get("/forecast", func(c *fiber.Ctx) error {
		if c.Query("days") == "" && v.Forecast.View().Days != 0 {
			return c.JSON(v.Forecast.View())
		}
		if err := v.Forecast.SetHorizon(c.UserContext(), c.QueryInt("days", 0)); isClientError(err) {
			return fail(c, err)
		}
		return c.JSON(v.Forecast.View())
	})

	// Relays
	g.Get("/relays", func(c *fiber.Ctx) error {
		return c.JSON(v.Relays.View())
	})
	g.Post("/relays/:id/toggle", func(c *fiber.Ctx) error {
		if err := v.Relays.Toggle(c.UserContext(), c.Params("id")); err != nil {
			return failWith(c, err, v.Relays.View())
		}
		return c.JSON(v.Relays.View())
	})

	// Chat
	g.Get("/chat", func(c *fiber.Ctx) error {
		return c.JSON(v.Chat.View())
	})
	g.Post("/chat", func(c *fiber.Ctx) error {
		var q domain.ChatQuery
		if err := c.BodyParser(&q); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		if err := v.Chat.Send(c.UserContext(), q.Question); err != nil {
			return fail(c, err)
		}
		return c.JSON(v.Chat.View())
	})
	g.Delete("/chat", func(c *fiber.Ctx) error {
		v.Chat.Clear()
		return c.JSON(v.Chat.View())
	})
}

func setDraft(c *fiber.Ctx, ed *dashboard.ThresholdEditor) error {
	var in domain.ThresholdUpdate
	if err := c.BodyParser(&in); err != nil {
		return &api.ValidationError{Field: "threshold", Reason: "body must be {\"threshold\": number}"}
	}
	return ed.SetDraft(in.Threshold)
}

// isClientError reports errors caused by the request itself. Backend
// failures are not among them; the view keeps its last good state.
func isClientError(err error) bool {
	var vErr *api.ValidationError
	return errors.As(err, &vErr)
}

func statusFor(err error) int {
	switch {
	case isClientError(err), errors.Is(err, dashboard.ErrEmptyQuestion):
		return fiber.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotEditing),
		errors.Is(err, dashboard.ErrTogglePending),
		errors.Is(err, dashboard.ErrChatBusy):
		return fiber.StatusConflict
	default:
		return fiber.StatusBadGateway
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": api.Message(err)})
}

func failWith(c *fiber.Ctx, err error, view any) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": api.Message(err), "view": view})
}
