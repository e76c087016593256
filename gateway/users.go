package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/supermart/pkg/models"
)

type createUserRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (g *Gateway) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := &models.User{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := g.users.Create(c.Request.Context(), user); err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (g *Gateway) getUser(c *gin.Context) {
	id, err := models.ParseUserID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := g.users.GetByID(c.Request.Context(), id)
	if err != nil {
		g.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
