package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/urbanease/urbanease/internal/commission/domain"
)

type createCommissionRuleRequest struct {
	Scope         string     `json:"scope"`
	ScopeValue    string     `json:"scope_value"`
	Kind          string     `json:"kind"`
	Value         int64      `json:"value"`
	Priority      int        `json:"priority"`
	EffectiveFrom *time.Time `json:"effective_from"`
}

func (s *Server) CreateCommissionRule(c *gin.Context) {
	var req createCommissionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.commissionSvc.CreateRule(c.Request.Context(), commissiondomain.CreateRuleRequest{
		Scope:         strings.TrimSpace(req.Scope),
		ScopeValue:    strings.TrimSpace(req.ScopeValue),
		Kind:          strings.TrimSpace(req.Kind),
		Value:         req.Value,
		Priority:      req.Priority,
		EffectiveFrom: req.EffectiveFrom,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListCommissionRules(c *gin.Context) {
	resp, err := s.commissionSvc.ListRules(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
