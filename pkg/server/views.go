package server

import (
	"github.com/example/storefront/pkg/models"
	"github.com/gin-gonic/gin"
)

func cartView(cart *models.Cart) gin.H {
	return gin.H{
		"id":         cart.ID,
		"items":      cart.Items,
		"item_count": cart.ItemCount(),
		"total":      cart.Total(),
	}
}
