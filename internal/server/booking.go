package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	bookingdomain "github.com/urbanease/urbanease/internal/booking/domain"
)

type createBookingRequest struct {
	CustomerID    string                     `json:"customer_id"`
	ServiceType   string                     `json:"service_type"`
	PaymentMethod string                     `json:"payment_method"`
	ScheduledAt   time.Time                  `json:"scheduled_at"`
	Address       string                     `json:"address"`
	CouponCode    string                     `json:"coupon_code"`
	TotalDiscount int64                      `json:"total_discount"`
	Items         []createBookingItemRequest `json:"items"`
}

type createBookingItemRequest struct {
	ServiceName string `json:"service_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Discount    int64  `json:"discount"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer", "invalid customer id"))
		return
	}

	items := make([]bookingdomain.CreateBookingItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, bookingdomain.CreateBookingItem{
			ServiceName: strings.TrimSpace(item.ServiceName),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
		})
	}

	resp, err := s.bookingSvc.Create(c.Request.Context(), bookingdomain.CreateBookingRequest{
		CustomerID:    customerID,
		ServiceType:   strings.TrimSpace(req.ServiceType),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		ScheduledAt:   req.ScheduledAt,
		Address:       strings.TrimSpace(req.Address),
		CouponCode:    strings.TrimSpace(req.CouponCode),
		TotalDiscount: req.TotalDiscount,
		Items:         items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBooking(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.bookingSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBookingHistory(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	resp, err := s.bookingSvc.History(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type acceptBookingRequest struct {
	ProviderID   string `json:"provider_id"`
	ProviderType string `json:"provider_type"`
	Actor        string `json:"actor"`
}

func (s *Server) AcceptBooking(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	var req acceptBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	providerID, err := snowflake.ParseString(strings.TrimSpace(req.ProviderID))
	if err != nil {
		AbortWithError(c, newValidationError("provider_id", "invalid_provider", "invalid provider id"))
		return
	}

	resp, err := s.bookingSvc.Accept(c.Request.Context(), bookingdomain.AcceptRequest{
		BookingID:    id,
		ProviderID:   providerID,
		ProviderType: strings.TrimSpace(req.ProviderType),
		Actor:        strings.TrimSpace(req.Actor),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type transitionBookingRequest struct {
	Actor string `json:"actor"`
	Note  string `json:"note"`
}

func (s *Server) StartBooking(c *gin.Context) {
	s.transitionBooking(c, s.bookingSvc.Start)
}

func (s *Server) CompleteBooking(c *gin.Context) {
	s.transitionBooking(c, s.bookingSvc.Complete)
}

func (s *Server) ConfirmBooking(c *gin.Context) {
	s.transitionBooking(c, s.bookingSvc.Confirm)
}

func (s *Server) MarkBookingNoShow(c *gin.Context) {
	s.transitionBooking(c, s.bookingSvc.MarkNoShow)
}

func (s *Server) transitionBooking(c *gin.Context, op func(ctx context.Context, req bookingdomain.TransitionRequest) (bookingdomain.Booking, error)) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	var req transitionBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := op(c.Request.Context(), bookingdomain.TransitionRequest{
		BookingID: id,
		Actor:     strings.TrimSpace(req.Actor),
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type cancelBookingRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func (s *Server) CancelBooking(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.bookingSvc.Cancel(c.Request.Context(), bookingdomain.CancelRequest{
		BookingID: id,
		Actor:     strings.TrimSpace(req.Actor),
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AdvanceBookingRefund(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	var req transitionBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.bookingSvc.AdvanceRefund(c.Request.Context(), id, strings.TrimSpace(req.Actor))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type markPaidRequest struct {
	PaymentMethod string `json:"payment_method"`
	Actor         string `json:"actor"`
}

func (s *Server) MarkBookingPaid(c *gin.Context) {
	id, ok := parsePathID(c, "id")
	if !ok {
		return
	}

	var req markPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.bookingSvc.MarkPaid(c.Request.Context(), bookingdomain.MarkPaidRequest{
		BookingID:     id,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Actor:         strings.TrimSpace(req.Actor),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
