package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/repository"
)

type productRequest struct {
	ProductName string  `json:"product_name" binding:"required"`
	Quantity    int     `json:"quantity" binding:"min=0"`
	Price       float64 `json:"price" binding:"min=0"`
	Image       string  `json:"image"`
}

func (g *Gateway) listProducts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	products, total, err := g.products.List(c.Request.Context(), limit, offset)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
	})
}

func (g *Gateway) getProduct(c *gin.Context) {
	id, err := models.ParseProductID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	product, err := g.products.GetByID(c.Request.Context(), id)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (g *Gateway) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := &models.Product{
		ProductName: req.ProductName,
		Quantity:    req.Quantity,
		Price:       models.Round2(req.Price),
		Image:       req.Image,
	}
	if err := g.products.Create(c.Request.Context(), product); err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (g *Gateway) updateProduct(c *gin.Context) {
	id, err := models.ParseProductID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	var req productRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := g.products.GetByID(c.Request.Context(), id)
	if err != nil {
		g.renderError(c, err)
		return
	}
	product.ProductName = req.ProductName
	product.Quantity = req.Quantity
	product.Price = models.Round2(req.Price)
	product.Image = req.Image

	if err := g.products.Update(c.Request.Context(), product); err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	id, err := models.ParseProductID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := g.products.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
