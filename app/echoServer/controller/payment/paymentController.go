package payment

import (
	"log/slog"
	"net/http"
	"strconv"

	ps "libraryrental/service/payment"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ps.Service
	Log *slog.Logger
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}

// GET /v1/payments/success?session_id=...
func (h *Controller) Success(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "session_id is required"})
	}

	if err := h.Svc.HandleSuccess(c.Request().Context(), sessionID); err != nil {
		switch ps.Code(err) {
		case ps.ErrPaymentNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "payment not found"})
		case ps.ErrAlreadyTerminal:
			// Replayed redirect; nothing left to do.
			return c.JSON(http.StatusOK, echo.Map{"message": "payment already settled"})
		case ps.ErrSessionNotPaid:
			return c.JSON(http.StatusConflict, echo.Map{"message": "session is not paid"})
		case ps.ErrGateway:
			return c.JSON(http.StatusBadGateway, echo.Map{"message": "payment provider unavailable"})
		default:
			h.Log.Error("payment success", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "payment succeeded"})
}

// GET /v1/payments/cancel
func (h *Controller) Cancel(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Your payment session is still available for 24 hours. Please complete your payment within this period.",
	})
}

// POST /v1/payments/renew
func (h *Controller) Renew(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)

	out, err := h.Svc.RenewExpired(c.Request().Context(), uid)
	if err != nil {
		switch ps.Code(err) {
		case ps.ErrNoExpiredPayment:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "no expired payment session found for renewal"})
		case ps.ErrGateway:
			return c.JSON(http.StatusBadGateway, echo.Map{"message": "payment provider unavailable"})
		default:
			h.Log.Error("payment renew", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "payment session renewed",
		"session_id":  out.SessionID,
		"session_url": out.SessionURL,
	})
}

// GET /v1/payments
func (h *Controller) List(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)

	rows, err := h.Svc.List(c.Request().Context(), uid, isAdmin(c))
	if err != nil {
		h.Log.Error("payment list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/payments/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	row, err := h.Svc.Detail(c.Request().Context(), uid, isAdmin(c), id)
	if err != nil {
		switch ps.Code(err) {
		case ps.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
		case ps.ErrNotOwner:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		default:
			h.Log.Error("payment detail", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, row)
}
