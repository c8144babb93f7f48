package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storefront/internal/domain"
	"storefront/internal/orderstatus"
	"storefront/internal/repository"
	"storefront/internal/service"
)

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	orders   *service.OrderService
	carts    *service.CartService
	log      *slog.Logger
}

func NewServer(products *service.ProductService, orders *service.OrderService, carts *service.CartService, log *slog.Logger) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), identity())
	s := &Server{engine: r, products: products, orders: orders, carts: carts, log: log}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/statuses", s.listStatuses)

		products := v1.Group("/products")
		products.GET("", s.listProducts)
		products.GET(":id", s.getProduct)
		admin := products.Group("", requireRole(domain.RoleAdmin))
		admin.POST("", s.createProduct)
		admin.PUT(":id", s.updateProduct)
		admin.DELETE(":id", s.deleteProduct)

		cart := v1.Group("/cart", cartSession())
		cart.GET("", s.getCart)
		cart.DELETE("", s.clearCart)
		cart.POST("/items", s.addCartItem)
		cart.PUT("/items/:id", s.updateCartItem)
		cart.DELETE("/items/:id", s.removeCartItem)
		cart.POST("/checkout", s.checkout)

		orders := v1.Group("/orders")
		orders.POST("", s.createOrder)
		orders.GET("", s.listOrders)
		orders.GET("/myorders", s.myOrders)
		orders.GET("/stats/all", s.orderStats)
		orders.GET(":id", s.getOrder)
		orders.PUT(":id/status", s.updateOrderStatus)
		orders.POST(":id/advance", s.advanceOrder)
		orders.POST(":id/cancel", s.cancelOrder)
	}
}

// orderResponse заказ вместе с представлением статуса для роли вызывающего
type orderResponse struct {
	domain.Order
	View orderstatus.View `json:"view"`
}

func newOrderResponse(o *domain.Order, role domain.Role) orderResponse {
	return orderResponse{Order: *o, View: orderstatus.ViewFor(role, o.Status)}
}

func newOrderList(list []domain.Order, role domain.Role) []orderResponse {
	out := make([]orderResponse, 0, len(list))
	for i := range list {
		out = append(out, newOrderResponse(&list[i], role))
	}
	return out
}

type statusInfo struct {
	Status domain.OrderStatus `json:"status"`
	orderstatus.Display
	Step int `json:"step"`
}

type statusesResp struct {
	Statuses []statusInfo      `json:"statuses"`
	Steps    []orderstatus.Step `json:"steps"`
}

// @Summary Order status display mapping
// @Tags orders
// @Produce json
// @Success 200 {object} statusesResp
// @Router /statuses [get]
func (s *Server) listStatuses(c *gin.Context) {
	all := append(orderstatus.Sequence(), domain.OrderStatusCancelled)
	resp := statusesResp{Statuses: make([]statusInfo, 0, len(all)), Steps: orderstatus.Steps()}
	for _, st := range all {
		resp.Statuses = append(resp.Statuses, statusInfo{
			Status:  st,
			Display: orderstatus.DisplayFor(st),
			Step:    orderstatus.StepIndex(st),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// Product handlers
type productReq struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Available   *bool   `json:"available"`
}

func (r productReq) toDomain(id int64) domain.Product {
	available := true
	if r.Available != nil {
		available = *r.Available
	}
	return domain.Product{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Price:       r.Price,
		Image:       r.Image,
		Available:   available,
	}
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Create(c, req.toDomain(0))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	p, err := s.products.GetByID(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Update(c, req.toDomain(id))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param id path int true "Product ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := s.products.Delete(c, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Param category query string false "Category"
// @Param available query bool false "Only available"
// @Param min_price query number false "Min price"
// @Param max_price query number false "Max price"
// @Success 200 {array} domain.Product
// @Failure 400 {object} map[string]string
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	var f repository.ProductFilter
	if q := c.Query("q"); q != "" {
		f.NameSubstring = q
	}
	f.Category = c.Query("category")
	if v := c.Query("available"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.AvailableOnly = b
		}
	}
	if v := c.Query("min_price"); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinPrice = &x
		}
	}
	if v := c.Query("max_price"); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxPrice = &x
		}
	}
	list, err := s.products.List(c, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Order handlers

// @Summary Create order
// @Tags orders
// @Accept json
// @Produce json
// @Param input body domain.PlaceOrderInput true "Order"
// @Success 201 {object} orderResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req domain.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u := currentUser(c)
	o, err := s.orders.CreateOrder(c, u, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(o, u.Role))
}

// @Summary List orders (staff, admin)
// @Tags orders
// @Produce json
// @Param status query string false "Status filter"
// @Success 200 {array} orderResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	u := currentUser(c)
	list, err := s.orders.ListOrders(c, u, c.Query("status"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderList(list, u.Role))
}

// @Summary List orders of the current user
// @Tags orders
// @Produce json
// @Success 200 {array} orderResponse
// @Failure 401 {object} map[string]string
// @Router /orders/myorders [get]
func (s *Server) myOrders(c *gin.Context) {
	u := currentUser(c)
	list, err := s.orders.ListMyOrders(c, u)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderList(list, u.Role))
}

// @Summary Sales statistics (admin)
// @Tags orders
// @Produce json
// @Success 200 {object} domain.OrderStats
// @Failure 403 {object} map[string]string
// @Router /orders/stats/all [get]
func (s *Server) orderStats(c *gin.Context) {
	st, err := s.orders.Stats(c, currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} orderResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	u := currentUser(c)
	o, err := s.orders.GetOrder(c, id, u)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o, u.Role))
}

type updateStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

// @Summary Set order status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param input body updateStatusReq true "Status"
// @Success 200 {object} orderResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/status [put]
func (s *Server) updateOrderStatus(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	u := currentUser(c)
	o, err := s.orders.UpdateStatus(c, id, req.Status, u)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o, u.Role))
}

// @Summary Advance order to the next status
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} orderResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/advance [post]
func (s *Server) advanceOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	u := currentUser(c)
	o, err := s.orders.AdvanceStatus(c, id, u)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o, u.Role))
}

// @Summary Cancel order
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} orderResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	u := currentUser(c)
	o, err := s.orders.CancelOrder(c, id, u)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(o, u.Role))
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", slog.String("path", c.FullPath()), slog.Any("err", err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrUnavailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
