package httpapi

import (
	"bytes"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/seasonal-temperature-monitor/internal/dashboard"
	"github.com/i474232898/seasonal-temperature-monitor/internal/session"
	"github.com/i474232898/seasonal-temperature-monitor/internal/views"
)

// SessionCookie carries the session id between requests.
const SessionCookie = "stm_session"

const localsSessionID = "sessionID"

var validate = validator.New()

// RegisterRoutes wires the dashboard pages and the JSON API into the Fiber app.
func RegisterRoutes(app *fiber.App, service *dashboard.Service) {
	h := &handlers{service: service}

	app.Get("/", h.dashboard)
	app.Post("/upload", h.upload)
	app.Post("/city", h.selectCity)
	app.Post("/key", h.submitKey)
	app.Get("/chart.png", h.chart)

	v1 := app.Group("/api/v1")
	v1.Get("/session", h.snapshot)
	v1.Post("/session/dataset", h.apiUpload)
	v1.Put("/session/city", h.apiSelectCity)
	v1.Put("/session/key", h.apiSubmitKey)
}

type handlers struct {
	service *dashboard.Service
}

// cityForm holds the body of a city selection.
type cityForm struct {
	City string `form:"city" json:"city" validate:"required"`
}

// keyForm holds the body of an API key submission. The key may be empty
// when a default key is configured.
type keyForm struct {
	APIKey string `form:"api_key" json:"apiKey" validate:"max=256"`
}

// sessionID returns the caller's session, starting a new one when the
// cookie is missing or the session has expired.
func (h *handlers) sessionID(c *fiber.Ctx) string {
	if id, ok := c.Locals(localsSessionID).(string); ok {
		return id
	}
	if id := c.Cookies(SessionCookie); id != "" {
		if _, err := h.service.Snapshot(id); err == nil {
			c.Locals(localsSessionID, id)
			return id
		}
	}
	id := h.service.NewSession()
	c.Locals(localsSessionID, id)
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return id
}

func (h *handlers) dashboard(c *fiber.Ctx) error {
	snap, err := h.service.Snapshot(h.sessionID(c))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, snap); err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// The form handlers record failures in the session and redirect back to
// the dashboard, which displays them.

func (h *handlers) upload(c *fiber.Ctx) error {
	id := h.sessionID(c)
	if err := h.doUpload(c, id); err != nil && errors.Is(err, session.ErrNotFound) {
		return err
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *handlers) selectCity(c *fiber.Ctx) error {
	id := h.sessionID(c)
	var form cityForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.service.SelectCity(c.UserContext(), id, strings.TrimSpace(form.City)); errors.Is(err, session.ErrNotFound) {
		return err
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *handlers) submitKey(c *fiber.Ctx) error {
	id := h.sessionID(c)
	var form keyForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.service.SubmitKey(c.UserContext(), id, strings.TrimSpace(form.APIKey)); errors.Is(err, session.ErrNotFound) {
		return err
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *handlers) chart(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.service.RenderChart(h.sessionID(c), &buf); err != nil {
		return toHTTPError(err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

func (h *handlers) snapshot(c *fiber.Ctx) error {
	snap, err := h.service.Snapshot(h.sessionID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(snap)
}

func (h *handlers) apiUpload(c *fiber.Ctx) error {
	id := h.sessionID(c)
	if err := h.doUpload(c, id); err != nil {
		return toHTTPError(err)
	}
	return h.snapshot(c)
}

func (h *handlers) apiSelectCity(c *fiber.Ctx) error {
	id := h.sessionID(c)
	var form cityForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.service.SelectCity(c.UserContext(), id, strings.TrimSpace(form.City)); err != nil {
		return toHTTPError(err)
	}
	return h.snapshot(c)
}

func (h *handlers) apiSubmitKey(c *fiber.Ctx) error {
	id := h.sessionID(c)
	var form keyForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := validate.Struct(form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.service.SubmitKey(c.UserContext(), id, strings.TrimSpace(form.APIKey)); err != nil {
		return toHTTPError(err)
	}
	return h.snapshot(c)
}

func (h *handlers) doUpload(c *fiber.Ctx, id string) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return h.service.Upload(id, "", strings.NewReader(""))
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	return h.service.Upload(id, fh.Filename, f)
}

// toHTTPError maps dashboard errors to HTTP status codes. Upstream auth
// failures keep the verbatim provider message.
func toHTTPError(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	switch dashboard.KindOf(err) {
	case dashboard.KindUpload, dashboard.KindCity, dashboard.KindKey:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case dashboard.KindAuth:
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case dashboard.KindUpstream:
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case dashboard.KindBaseline:
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
