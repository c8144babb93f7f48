package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/service"
)

type addCartItemReq struct {
	ProductID int64 `json:"product"`
	// отсутствует — 1; явный 0 отклоняется
	Quantity *int64 `json:"quantity"`
}

// @Summary Get cart of the session
// @Tags cart
// @Produce json
// @Param X-Cart-Session header string false "Cart session id"
// @Success 200 {object} cart.Summary
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, s.carts.Get(c, sessionID(c)))
}

// @Summary Add product to cart
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Cart-Session header string false "Cart session id"
// @Param input body addCartItemReq true "Item; omitted quantity means 1, zero or less is rejected"
// @Success 200 {object} cart.Summary
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /cart/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	var req addCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	qty := int64(1)
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	sum, err := s.carts.AddItem(c, sessionID(c), req.ProductID, qty)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

type updateCartItemReq struct {
	Quantity int64 `json:"quantity"`
}

// @Summary Set quantity of a cart line, zero or less removes it
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Cart-Session header string false "Cart session id"
// @Param id path int true "Product ID"
// @Param input body updateCartItemReq true "Quantity"
// @Success 200 {object} cart.Summary
// @Failure 400 {object} map[string]string
// @Router /cart/items/{id} [put]
func (s *Server) updateCartItem(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	c.JSON(http.StatusOK, s.carts.UpdateItem(c, sessionID(c), id, req.Quantity))
}

// @Summary Remove cart line
// @Tags cart
// @Produce json
// @Param X-Cart-Session header string false "Cart session id"
// @Param id path int true "Product ID"
// @Success 200 {object} cart.Summary
// @Failure 400 {object} map[string]string
// @Router /cart/items/{id} [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	c.JSON(http.StatusOK, s.carts.RemoveItem(c, sessionID(c), id))
}

// @Summary Clear cart
// @Tags cart
// @Produce json
// @Param X-Cart-Session header string false "Cart session id"
// @Success 200 {object} cart.Summary
// @Router /cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	c.JSON(http.StatusOK, s.carts.Clear(c, sessionID(c)))
}

// @Summary Place order from cart
// @Tags cart
// @Accept json
// @Produce json
// @Param X-Cart-Session header string false "Cart session id"
// @Param input body service.CheckoutInput true "Checkout"
// @Success 201 {object} orderResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /cart/checkout [post]
func (s *Server) checkout(c *gin.Context) {
	var req service.CheckoutInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u := currentUser(c)
	o, err := s.carts.Checkout(c, sessionID(c), u, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(o, u.Role))
}
