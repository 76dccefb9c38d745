package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/audience-backend/internal/platform/apierr"
	"github.com/yungbote/audience-backend/internal/platform/dbctx"
	"github.com/yungbote/audience-backend/internal/services"
)

func requestDBC(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}

// pathUUID parses a route parameter. label names the resource in the validation message.
func pathUUID(c *gin.Context, name string, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.Validation("invalid %s id", label)
	}
	return id, nil
}

func bodyUUID(raw string, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apierr.Validation("invalid %s id", label)
	}
	return id, nil
}

// pageParams reads page (default 1) and limit (default services.DefaultPageSize). pageSize is
// accepted in place of limit.
func pageParams(c *gin.Context) (int, int, error) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	sizeKey := "limit"
	if _, ok := c.GetQuery("limit"); !ok {
		if _, ok := c.GetQuery("pageSize"); ok {
			sizeKey = "pageSize"
		}
	}
	size, err := intQuery(c, sizeKey, services.DefaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apierr.Validation("%s must be an integer", key)
	}
	return n, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apierr.Validation("invalid request body: %v", err)
	}
	return nil
}
