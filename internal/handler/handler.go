// Package handler exposes the HTTP handlers for the directory, impact and
// diagnostics endpoints.  Every error body is {"error": "..."}; validation
// failures add a "fields" map of field name to failed rule.
package handler

import (
    "errors"
    "net/http"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/terra-tranquil-api/internal/logger"
    "github.com/iliyamo/terra-tranquil-api/internal/repository"
    "github.com/iliyamo/terra-tranquil-api/internal/service"
)

// RequestValidator adapts go-playground/validator to echo.Validator and
// reports fields by their JSON names.
type RequestValidator struct {
    v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &RequestValidator{v: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
    return rv.v.Struct(i)
}

// validationFields flattens validator errors into field -> tag.
func validationFields(err error) map[string]string {
    var ves validator.ValidationErrors
    if !errors.As(err, &ves) {
        return nil
    }
    out := make(map[string]string, len(ves))
    for _, fe := range ves {
        out[fe.Field()] = fe.Tag()
    }
    return out
}

// bindAndValidate decodes the JSON body into dst and validates it.  It
// writes the error response itself and returns false when the request
// must stop.
func bindAndValidate(c echo.Context, dst interface{}) (bool, error) {
    if err := c.Bind(dst); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(dst); err != nil {
        if fields := validationFields(err); fields != nil {
            return false, c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": fields})
        }
        return false, c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
    }
    return true, nil
}

// writeError maps store and service errors to responses.  what names the
// resource in 404 messages.  Unexpected errors are logged here, once.
func writeError(c echo.Context, log *logger.Logger, err error, what string) error {
    switch {
    case errors.Is(err, repository.ErrInvalidID):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what + " id"})
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
    case errors.Is(err, service.ErrInvalidArgument):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
    default:
        log.Error("request failed",
            "method", c.Request().Method,
            "path", c.Path(),
            "error", err,
        )
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
    }
}

// ErrorHandler renders errors that escape handlers (unknown routes, bad
// methods, panics recovered upstream) in the same body shape.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        code := http.StatusInternalServerError
        msg := "internal server error"
        var he *echo.HTTPError
        if errors.As(err, &he) {
            code = he.Code
            if m, ok := he.Message.(string); ok {
                msg = m
            } else {
                msg = http.StatusText(code)
            }
        } else {
            log.Error("unhandled error", "path", c.Request().URL.Path, "error", err)
        }
        if c.Request().Method == http.MethodHead {
            _ = c.NoContent(code)
            return
        }
        _ = c.JSON(code, echo.Map{"error": msg})
    }
}
