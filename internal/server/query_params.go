package server

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/urbanease/urbanease/pkg/db/pagination"
)

func parsePathID(c *gin.Context, name string) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError(name, "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}

func parsePagination(c *gin.Context) pagination.Pagination {
	page := pagination.Pagination{
		PageToken: strings.TrimSpace(c.Query("page_token")),
	}
	if raw := strings.TrimSpace(c.Query("page_size")); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			page.PageSize = size
		}
	}
	return page
}
