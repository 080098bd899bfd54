package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/middleware"
	"github.com/noah-isme/roster-api/internal/models"
	"github.com/noah-isme/roster-api/internal/service"
	appErrors "github.com/noah-isme/roster-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	return middleware.Claims(c)
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}

func invalidQuery(field, rule string) error {
	return appErrors.Validation("invalid query", appErrors.FieldViolation{Field: field, Rule: rule})
}

// parseDateParam reads a civil date from raw, reporting field on failure.
func parseDateParam(field, raw string) (models.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Date{}, invalidQuery(field, service.RuleRequired)
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, invalidQuery(field, service.RuleDate)
	}
	return d, nil
}

// paginate slices items when the request carries a limit. Without one the full list is returned
// and no pagination block is sent.
func paginate[T any](c *gin.Context, items []T) ([]T, *models.Pagination) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return items, nil
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], &models.Pagination{Page: page, PageSize: limit, TotalCount: len(items)}
}
