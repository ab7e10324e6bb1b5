package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/terra-tranquil-api/internal/logger"
    "github.com/iliyamo/terra-tranquil-api/internal/service"
)

// ImpactHandler serves visit logging and per-user impact reads.
type ImpactHandler struct {
    Impact *service.ImpactService
    Log    *logger.Logger
}

type logVisitRequest struct {
    UserID     string `json:"user_id" validate:"required,max=128"`
    Username   string `json:"username" validate:"required,max=255"`
    BusinessID string `json:"business_id" validate:"required"`
}

// LogVisit handles POST /api/visits and answers {"impact": {...}}.
func (h *ImpactHandler) LogVisit(c echo.Context) error {
    var req logVisitRequest
    if ok, err := bindAndValidate(c, &req); !ok {
        return err
    }
    imp, err := h.Impact.LogVisit(c.Request().Context(), service.LogVisitInput{
        UserID:     req.UserID,
        Username:   req.Username,
        BusinessID: req.BusinessID,
    })
    if err != nil {
        return writeError(c, h.Log, err, "business")
    }
    return c.JSON(http.StatusOK, echo.Map{"impact": imp})
}

// GetImpact handles GET /api/users/:user_id/impact?username=.
func (h *ImpactHandler) GetImpact(c echo.Context) error {
    imp, err := h.Impact.GetImpact(c.Request().Context(), c.Param("user_id"), c.QueryParam("username"))
    if err != nil {
        return writeError(c, h.Log, err, "user")
    }
    return c.JSON(http.StatusOK, imp)
}

// ListVisits handles GET /api/users/:user_id/visits.
func (h *ImpactHandler) ListVisits(c echo.Context) error {
    visits, err := h.Impact.ListVisits(c.Request().Context(), c.Param("user_id"))
    if err != nil {
        return writeError(c, h.Log, err, "user")
    }
    return c.JSON(http.StatusOK, visits)
}
