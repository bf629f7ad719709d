package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trainhub/enroll-api/internal/domain"
	"github.com/trainhub/enroll-api/internal/middleware"
	"github.com/trainhub/enroll-api/internal/models"
	appErrors "github.com/trainhub/enroll-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) (domain.Actor, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return domain.Actor{}, appErrors.ErrUnauthorized
	}
	return domain.Actor{ID: claims.UserID, Role: claims.Role}, nil
}

func idParam(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Validation(name, "must be a positive integer")
	}
	return id, nil
}

func paginationFrom(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

func paginationMeta(page, pageSize, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
