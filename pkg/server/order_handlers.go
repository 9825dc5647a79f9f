package server

import (
	"net/http"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
)

func (s *Server) createOrder(c *gin.Context) {
	id, _ := currentIdentity(c)

	cart, err := s.carts.Get(c.Request.Context(), id.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	order, err := s.orders.Create(c.Request.Context(), id.UserID, cart.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (s *Server) listOrders(c *gin.Context) {
	id, _ := currentIdentity(c)

	orders, total, err := s.orders.ListForUser(c.Request.Context(), id.UserID,
		queryInt(c, "page", 1), queryInt(c, "page_size", 20))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

func (s *Server) getOrder(c *gin.Context) {
	id, _ := currentIdentity(c)

	order, err := s.orders.Get(c.Request.Context(), c.Param("id"), id.UserID, id.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) cancelOrder(c *gin.Context) {
	id, _ := currentIdentity(c)

	order, err := s.orders.Cancel(c.Request.Context(), c.Param("id"), id.UserID, id.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (s *Server) adminListOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		Status:   models.OrderStatus(c.Query("status")),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	orders, total, err := s.orders.ListAll(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

func (s *Server) adminOrderAudit(c *gin.Context) {
	id, _ := currentIdentity(c)

	entries, err := s.orders.AuditTrail(c.Request.Context(), c.Param("id"), id.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type orderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

func (s *Server) adminUpdateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, _ := currentIdentity(c)
	order, err := s.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, id.UserID, id.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type updateQuoteRequest struct {
	Items []service.QuoteEdit `json:"items" binding:"required"`
}

func (s *Server) adminUpdateQuote(c *gin.Context) {
	var req updateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, _ := currentIdentity(c)
	results, order, err := s.orders.UpdateQuote(c.Request.Context(), c.Param("id"), req.Items, id.UserID, id.Role)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "order": order})
}
