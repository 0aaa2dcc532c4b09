package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/supportline/internal/models"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func fail(c *gin.Context, err error) {
	status, message := mapError(err)
	c.JSON(status, envelope{Success: false, Message: message})
}

// mapError maps repository and orchestrator errors to HTTP responses.
func mapError(err error) (int, string) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error()
	}
	if errors.Is(err, models.ErrNotFound) {
		return http.StatusNotFound, "resource not found"
	}
	log.Printf("api: unexpected error: %v", err)
	return http.StatusInternalServerError, "internal server error"
}

// paramID reads a positive integer path parameter.
func paramID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, models.NewValidationError(name, fmt.Sprintf("invalid id %q", raw))
	}
	return uint(n), nil
}

// bindJSON decodes the request body, reporting decode failures as
// validation errors.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return models.NewValidationError("body", err.Error())
	}
	return nil
}
