package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetProviderBalance(c *gin.Context) {
	providerID, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	balance, err := s.earningSvc.AvailableBalance(c.Request.Context(), providerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"provider_id": providerID.String(),
		"available":   balance,
	}})
}

func (s *Server) GetProviderEarningsSummary(c *gin.Context) {
	providerID, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	summary, err := s.earningSvc.GetSummary(c.Request.Context(), providerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) ListProviderEarnings(c *gin.Context) {
	providerID, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	entries, pageInfo, err := s.earningSvc.List(c.Request.Context(), providerID, parsePagination(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries, "page_info": pageInfo})
}
