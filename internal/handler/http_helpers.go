package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pubshare/internal/baas"
	"github.com/pubshare/internal/service"
	"go.uber.org/zap"
)

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, service.NewResult(data, nil))
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, service.Result[any]{Error: message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// fail writes the failure envelope for err with a matching status.
func (a *API) fail(c *gin.Context, err error) {
	status := errorStatus(err)
	if service.IsUnexpected(err) {
		_ = c.Error(err)
		a.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.JSON(status, service.Failure[any](err))
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPublicationNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidPreviewImage),
		errors.Is(err, service.ErrEmptyComment),
		errors.Is(err, service.ErrEmptyQuery):
		return http.StatusBadRequest
	}
	if ce, ok := baas.AsClientError(err); ok {
		if ce.Status == 0 {
			return http.StatusBadGateway
		}
		return ce.Status
	}
	return http.StatusInternalServerError
}

func pageQuery(c *gin.Context) int {
	page, err := strconv.Atoi(strings.TrimSpace(c.DefaultQuery("page", "1")))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func perPageQuery(c *gin.Context, fallback int) int {
	perPage, err := strconv.Atoi(strings.TrimSpace(c.Query("perPage")))
	if err != nil || perPage < 1 {
		return fallback
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}
