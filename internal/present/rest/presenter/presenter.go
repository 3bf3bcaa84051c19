package presenter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memoryvault/vault"
	"github.com/memoryvault/vault/internal/domain"
	"github.com/memoryvault/vault/internal/infrastructure/gateway"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	fmt.Println("Bad request:", err)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	fmt.Println("Bad request:", msg)
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	fmt.Println("Not found:", msg)
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	fmt.Println("Internal error:", err)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// Failure maps a usecase error onto its HTTP shape. Anything unrecognized is
// an internal error.
func Failure(c echo.Context, err error) error {
	var exhausted *gateway.ExhaustedError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return NotFound(c, err.Error())
	case errors.Is(err, vault.ErrGrantNotFound):
		return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, vault.ErrGrantExpired),
		errors.Is(err, vault.ErrViewLimitExceeded):
		return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, vault.ErrKeyMismatch),
		errors.Is(err, vault.ErrDecryptionFailure):
		return c.JSON(http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrSelfRequest),
		errors.Is(err, vault.ErrMalformedDocument):
		return BadRequest(c, err)
	case errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrPointerConflict):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &exhausted):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		return InternalError(c, err)
	}
}
