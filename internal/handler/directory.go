package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/terra-tranquil-api/internal/logger"
    "github.com/iliyamo/terra-tranquil-api/internal/middleware"
    "github.com/iliyamo/terra-tranquil-api/internal/service"
)

// DirectoryHandler serves the business directory.
type DirectoryHandler struct {
    Dir *service.Directory
    Log *logger.Logger
}

type registerBusinessRequest struct {
    Name        string  `json:"name" validate:"required,max=255"`
    Category    string  `json:"category" validate:"required,max=100"`
    Location    string  `json:"location" validate:"required,max=255"`
    Website     *string `json:"website" validate:"omitempty,max=2048"`
    Description *string `json:"description"`
    LogoURL     *string `json:"logo_url" validate:"omitempty,max=2048"`
    HeroImage   *string `json:"hero_image" validate:"omitempty,max=2048"`
    EcoChecks   []bool  `json:"eco_checks"`
    EcoScore    *int    `json:"eco_score" validate:"omitempty,min=0,max=100"`
}

// List handles GET /api/businesses?search=&category=.  It never fails: a
// store outage yields an empty array marked with the degraded header so the
// response cache skips it.
func (h *DirectoryHandler) List(c echo.Context) error {
    out, degraded := h.Dir.ListBusinesses(c.Request().Context(), c.QueryParam("search"), c.QueryParam("category"))
    if degraded {
        c.Response().Header().Set(middleware.DegradedHeader, "1")
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET /api/businesses/:id.
func (h *DirectoryHandler) Get(c echo.Context) error {
    b, err := h.Dir.GetBusiness(c.Request().Context(), c.Param("id"))
    if err != nil {
        return writeError(c, h.Log, err, "business")
    }
    return c.JSON(http.StatusOK, b)
}

// Register handles POST /api/businesses.
func (h *DirectoryHandler) Register(c echo.Context) error {
    var req registerBusinessRequest
    if ok, err := bindAndValidate(c, &req); !ok {
        return err
    }
    b, err := h.Dir.RegisterBusiness(c.Request().Context(), service.RegisterBusinessInput{
        Name:        req.Name,
        Category:    req.Category,
        Location:    req.Location,
        Website:     req.Website,
        Description: req.Description,
        LogoURL:     req.LogoURL,
        HeroImage:   req.HeroImage,
        EcoChecks:   req.EcoChecks,
        EcoScore:    req.EcoScore,
    })
    if err != nil {
        return writeError(c, h.Log, err, "business")
    }
    return c.JSON(http.StatusOK, b)
}
