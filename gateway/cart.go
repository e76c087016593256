package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/repository"
)

type addCartItemRequest struct {
	ProductID uint64 `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// getCart serves the cart snapshot, read-through cached in Redis. The
// cart_items table stays the source of truth; any cache failure falls back
// to the database.
func (g *Gateway) getCart(c *gin.Context) {
	userID := currentUserID(c)
	ctx := c.Request.Context()

	items, err := g.cache.GetCartCache(ctx, userID)
	if err != nil {
		g.logger.Warn("cart cache read failed", zap.Uint64("user_id", uint64(userID)), zap.Error(err))
	}
	if items == nil {
		items, err = g.carts.GetByUser(ctx, userID)
		if err != nil {
			g.renderError(c, err)
			return
		}
		if len(items) > 0 {
			if err := g.cache.CacheCart(ctx, userID, items); err != nil {
				g.logger.Warn("cart cache write failed", zap.Uint64("user_id", uint64(userID)), zap.Error(err))
			}
		}
	}

	var total float64
	for _, item := range items {
		total += item.Total
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": models.Round2(total),
	})
}

func (g *Gateway) addCartItem(c *gin.Context) {
	userID := currentUserID(c)

	var req addCartItemRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	productID := models.ProductID(req.ProductID)

	ctx := c.Request.Context()
	product, err := g.products.GetByID(ctx, productID)
	if err != nil {
		g.renderError(c, err)
		return
	}

	err = g.carts.Add(ctx, userID, productID, req.Quantity, product.Price)
	capped := errors.Is(err, repository.ErrCartLimitExceeded)
	if err != nil && !capped {
		g.renderError(c, err)
		return
	}
	g.invalidateCart(c, userID)

	if capped {
		// The line was persisted at the cap; tell the frontend why.
		c.JSON(http.StatusOK, gin.H{"success": true, "warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) updateCartItem(c *gin.Context) {
	userID := currentUserID(c)

	productID, err := models.ParseProductID(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req updateCartItemRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Quantity > models.MaxCartLineQuantity {
		c.JSON(http.StatusBadRequest, gin.H{"error": repository.ErrCartLimitExceeded.Error()})
		return
	}

	ctx := c.Request.Context()
	product, err := g.products.GetByID(ctx, productID)
	if err != nil {
		g.renderError(c, err)
		return
	}

	if err := g.carts.UpdateQuantity(ctx, userID, productID, req.Quantity, product.Price); err != nil {
		g.renderError(c, err)
		return
	}
	g.invalidateCart(c, userID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// decrementCartItem lowers a line by one unit, dropping the line entirely
// once it reaches zero.
func (g *Gateway) decrementCartItem(c *gin.Context) {
	userID := currentUserID(c)

	productID, err := models.ParseProductID(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := g.carts.Decrement(c.Request.Context(), userID, productID, 1); err != nil {
		g.renderError(c, err)
		return
	}
	g.invalidateCart(c, userID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	userID := currentUserID(c)

	productID, err := models.ParseProductID(c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := g.carts.Remove(c.Request.Context(), userID, productID); err != nil {
		g.renderError(c, err)
		return
	}
	g.invalidateCart(c, userID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) clearCart(c *gin.Context) {
	userID := currentUserID(c)

	if err := g.carts.Clear(c.Request.Context(), userID); err != nil {
		g.renderError(c, err)
		return
	}
	g.invalidateCart(c, userID)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) invalidateCart(c *gin.Context, userID models.UserID) {
	if err := g.cache.InvalidateCart(c.Request.Context(), userID); err != nil {
		g.logger.Warn("cart cache invalidation failed",
			zap.Uint64("user_id", uint64(userID)),
			zap.Error(err))
	}
}
