package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	withdrawaldomain "github.com/urbanease/urbanease/internal/withdrawal/domain"
)

type requestWithdrawalRequest struct {
	Amount      int64                  `json:"amount"`
	Method      string                 `json:"method"`
	Destination map[string]interface{} `json:"destination"`
}

func (s *Server) RequestWithdrawal(c *gin.Context) {
	providerID, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	var req requestWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.withdrawalSvc.RequestWithdrawal(c.Request.Context(), withdrawaldomain.RequestWithdrawalRequest{
		ProviderID:  providerID,
		Amount:      req.Amount,
		Method:      withdrawaldomain.Method(strings.TrimSpace(req.Method)),
		Destination: req.Destination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetWithdrawal(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.withdrawalSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProviderWithdrawals(c *gin.Context) {
	providerID, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	records, pageInfo, err := s.withdrawalSvc.List(c.Request.Context(), providerID, parsePagination(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records, "page_info": pageInfo})
}

type withdrawalDecisionRequest struct {
	Actor         string `json:"actor"`
	Note          string `json:"note"`
	ExternalTxnID string `json:"external_txn_id"`
}

func (s *Server) ApproveWithdrawal(c *gin.Context) {
	s.decideWithdrawal(c, s.withdrawalSvc.Approve)
}

func (s *Server) RejectWithdrawal(c *gin.Context) {
	s.decideWithdrawal(c, s.withdrawalSvc.Reject)
}

func (s *Server) decideWithdrawal(c *gin.Context, op func(ctx context.Context, req withdrawaldomain.DecisionRequest) (withdrawaldomain.PaymentRecord, error)) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	var req withdrawalDecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := op(c.Request.Context(), withdrawaldomain.DecisionRequest{
		PaymentRecordID: id,
		Actor:           strings.TrimSpace(req.Actor),
		Note:            strings.TrimSpace(req.Note),
		ExternalTxnID:   strings.TrimSpace(req.ExternalTxnID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
