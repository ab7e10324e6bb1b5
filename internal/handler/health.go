package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/terra-tranquil-api/internal/logger"
    "github.com/iliyamo/terra-tranquil-api/internal/model"
)

// ServiceName is reported by the root endpoint.
const ServiceName = "Terra Tranquil API"

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems.  It does not touch the store.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Root identifies the service.
func Root(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"name": ServiceName, "status": "ok"})
}

// Schema lists the persisted collections.
func Schema(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"collections": model.Collections})
}

// StoreInfo is implemented by each store backend.
type StoreInfo interface {
    Driver() string
    Tables(ctx context.Context) ([]string, error)
}

type DiagnosticsHandler struct {
    Store StoreInfo
    Log   *logger.Logger
}

// Test reports whether the store answers and which tables it has.  It
// always responds 200; the body says whether the store is reachable.
func (h *DiagnosticsHandler) Test(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
    defer cancel()

    tables, err := h.Store.Tables(ctx)
    if err != nil {
        h.Log.Warn("store diagnostics failed", "driver", h.Store.Driver(), "error", err)
        return c.JSON(http.StatusOK, echo.Map{
            "driver":    h.Store.Driver(),
            "connected": false,
            "error":     err.Error(),
        })
    }
    return c.JSON(http.StatusOK, echo.Map{
        "driver":    h.Store.Driver(),
        "connected": true,
        "tables":    tables,
    })
}
