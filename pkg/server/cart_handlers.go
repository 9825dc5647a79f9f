package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type cartQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// Cart endpoints serve two callers: authenticated users get the DB cart,
// anonymous callers with an X-Session-Key header get the Redis cart.

func (s *Server) getCart(c *gin.Context) {
	if id, ok := currentIdentity(c); ok {
		cart, err := s.carts.Get(c.Request.Context(), id.UserID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, cartView(cart))
		return
	}

	key := sessionKey(c)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication or session key required"})
		return
	}
	cart, err := s.carts.SessionGet(c.Request.Context(), key)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartView(cart))
}

func (s *Server) addCartItem(c *gin.Context) {
	var req cartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	productID := c.Param("productID")

	if id, ok := currentIdentity(c); ok {
		if err := s.carts.Add(c.Request.Context(), id.UserID, productID, req.Quantity); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"added": true})
		return
	}

	key := sessionKey(c)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication or session key required"})
		return
	}
	if err := s.carts.SessionAdd(c.Request.Context(), key, productID, req.Quantity); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": true})
}

func (s *Server) updateCartItem(c *gin.Context) {
	var req cartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	productID := c.Param("productID")

	if id, ok := currentIdentity(c); ok {
		if err := s.carts.Update(c.Request.Context(), id.UserID, productID, req.Quantity); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": true})
		return
	}

	key := sessionKey(c)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication or session key required"})
		return
	}
	if err := s.carts.SessionUpdate(c.Request.Context(), key, productID, req.Quantity); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (s *Server) removeCartItem(c *gin.Context) {
	productID := c.Param("productID")

	if id, ok := currentIdentity(c); ok {
		if err := s.carts.Remove(c.Request.Context(), id.UserID, productID); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"removed": true})
		return
	}

	key := sessionKey(c)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication or session key required"})
		return
	}
	if err := s.carts.SessionRemove(c.Request.Context(), key, productID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (s *Server) clearCart(c *gin.Context) {
	if id, ok := currentIdentity(c); ok {
		if err := s.carts.Clear(c.Request.Context(), id.UserID); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": true})
		return
	}

	key := sessionKey(c)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication or session key required"})
		return
	}
	if err := s.carts.SessionClear(c.Request.Context(), key); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// validateCart re-checks every line against current stock and availability,
// fixes what it can and reports what it changed.
func (s *Server) validateCart(c *gin.Context) {
	id, _ := currentIdentity(c)

	removed, err := s.carts.CleanUnavailable(c.Request.Context(), id.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	invalid, err := s.carts.ValidateAll(c.Request.Context(), id.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	cart, err := s.carts.Get(c.Request.Context(), id.UserID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"removed_unavailable": removed,
		"adjusted":            invalid,
		"cart":                cartView(cart),
	})
}
