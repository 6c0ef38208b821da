package handler

import (
	"errors"
	"net/http"

	"panpos/internal/gateway"
	"panpos/internal/model"
	"panpos/internal/offline"
	"panpos/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type POSHandler struct {
	facade *offline.Facade
}

func NewPOSHandler(facade *offline.Facade) *POSHandler {
	return &POSHandler{facade: facade}
}

func (h *POSHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/products", h.GetProducts)
		api.PUT("/products", h.UpdateProduct)
		api.DELETE("/products/:id", h.DeleteProduct)

		api.GET("/clients", h.GetClients)
		api.PUT("/clients", h.UpdateClient)
		api.POST("/clients/:id/payments", h.RegisterPayment)
		api.GET("/clients/:id/payments", h.ListPayments)

		api.GET("/sales", h.GetSales)
		api.POST("/sales", h.CreateSale)
		api.PUT("/sales/:id", h.UpdateSale)
		api.DELETE("/sales/:id", h.DeleteSale)

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.SaveSettings)

		api.GET("/suspended-sales", h.GetSuspendedSales)
		api.POST("/suspended-sales", h.AddSuspendedSale)
		api.DELETE("/suspended-sales/:id", h.RemoveSuspendedSale)
	}
}

// statusFor maps facade errors onto HTTP statuses. ErrOffline is the
// "requires internet" refusal, not a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, offline.ErrOffline):
		return http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrClientNotFound),
		errors.Is(err, gateway.ErrProductNotFound),
		errors.Is(err, gateway.ErrSaleNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrCodeCollision):
		return http.StatusConflict
	case errors.Is(err, offline.ErrEmptySale),
		errors.Is(err, offline.ErrInvalidQuantity),
		errors.Is(err, offline.ErrInvalidAmount),
		errors.Is(err, offline.ErrInvalidBackup):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusFor(err)
	c.JSON(status, response.Error(status, err.Error()))
}

// GetProducts returns the catalog, fresh when online, cached otherwise
// @Summary      List products
// @Tags         catalog
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Product}
// @Router       /api/products [get]
func (h *POSHandler) GetProducts(c *gin.Context) {
	products, err := h.facade.GetProducts(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// UpdateProduct creates or edits a product. Online-only.
// @Summary      Upsert product
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        payload  body      model.Product  true  "Product"
// @Success      200      {object}  response.Response{data=model.Product}
// @Failure      503      {object}  response.Response
// @Router       /api/products [put]
func (h *POSHandler) UpdateProduct(c *gin.Context) {
	var product model.Product
	if err := c.ShouldBindJSON(&product); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.facade.UpdateProduct(c.Request.Context(), &product); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct removes a product. Online-only.
// @Summary      Delete product
// @Tags         catalog
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *POSHandler) DeleteProduct(c *gin.Context) {
	if err := h.facade.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// GetClients returns the client roster
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Client}
// @Router       /api/clients [get]
func (h *POSHandler) GetClients(c *gin.Context) {
	clients, err := h.facade.GetClients(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, clients))
}

// UpdateClient creates or edits a client. Works offline (queued).
// @Summary      Upsert client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        payload  body      model.Client  true  "Client"
// @Success      200      {object}  response.Response{data=model.Client}
// @Router       /api/clients [put]
func (h *POSHandler) UpdateClient(c *gin.Context) {
	var client model.Client
	if err := c.ShouldBindJSON(&client); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.facade.UpdateClient(c.Request.Context(), &client); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, client))
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Note   string          `json:"note"`
}

// RegisterPayment records an abono against a client's debt. Works offline.
// @Summary      Register payment
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id       path      string          true  "Client ID"
// @Param        payload  body      paymentRequest  true  "Payment"
// @Success      201      {object}  response.Response{data=model.Payment}
// @Failure      404      {object}  response.Response
// @Router       /api/clients/{id}/payments [post]
func (h *POSHandler) RegisterPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	payment, err := h.facade.RegisterPayment(c.Request.Context(), c.Param("id"), req.Amount, req.Note)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, payment))
}

// ListPayments returns a client's payment history. Online-only.
// @Summary      List payments
// @Tags         clients
// @Produce      json
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  response.Response{data=[]model.Payment}
// @Router       /api/clients/{id}/payments [get]
func (h *POSHandler) ListPayments(c *gin.Context) {
	payments, err := h.facade.ListPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, payments))
}

// GetSales returns the sale history
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.Sale}
// @Router       /api/sales [get]
func (h *POSHandler) GetSales(c *gin.Context) {
	sales, err := h.facade.GetSales(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sales))
}

type createSaleRequest struct {
	Type     string          `json:"type" binding:"required,oneof=pos dispatch"`
	ClientID string          `json:"clientId"`
	Items    model.SaleItems `json:"items" binding:"required,min=1"`
	SellerID string          `json:"sellerId"`
}

// CreateSale records a retail or dispatch sale. Works offline (queued).
// @Summary      Create sale
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        payload  body      createSaleRequest  true  "Sale"
// @Success      201      {object}  response.Response{data=model.Sale}
// @Failure      404      {object}  response.Response
// @Router       /api/sales [post]
func (h *POSHandler) CreateSale(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	var sale *model.Sale
	var err error
	if req.Type == model.SaleTypeDispatch {
		sale, err = h.facade.CreateDispatchSale(c.Request.Context(), req.ClientID, req.Items, req.SellerID)
	} else {
		sale, err = h.facade.CreateRetailSale(c.Request.Context(), req.Items, req.SellerID)
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// UpdateSale edits a sale and adjusts debt by the total difference. Online-only.
// @Summary      Update sale
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        id       path      string      true  "Sale ID"
// @Param        payload  body      model.Sale  true  "Sale"
// @Success      200      {object}  response.Response{data=model.Sale}
// @Failure      503      {object}  response.Response
// @Router       /api/sales/{id} [put]
func (h *POSHandler) UpdateSale(c *gin.Context) {
	var sale model.Sale
	if err := c.ShouldBindJSON(&sale); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	sale.ID = c.Param("id")
	if err := h.facade.UpdateSale(c.Request.Context(), &sale); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sale))
}

// DeleteSale removes a sale, restoring stock and reversing debt. Online-only.
// @Summary      Delete sale
// @Tags         sales
// @Produce      json
// @Param        id   path      string  true  "Sale ID"
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /api/sales/{id} [delete]
func (h *POSHandler) DeleteSale(c *gin.Context) {
	if err := h.facade.DeleteSale(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}

// GetSettings returns the business settings
// @Summary      Get settings
// @Tags         settings
// @Produce      json
// @Success      200  {object}  response.Response{data=model.AppSettings}
// @Router       /api/settings [get]
func (h *POSHandler) GetSettings(c *gin.Context) {
	settings, err := h.facade.GetSettings(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// SaveSettings replaces the business settings. Online-only.
// @Summary      Save settings
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        payload  body      model.AppSettings  true  "Settings"
// @Success      200      {object}  response.Response{data=model.AppSettings}
// @Failure      503      {object}  response.Response
// @Router       /api/settings [put]
func (h *POSHandler) SaveSettings(c *gin.Context) {
	var settings model.AppSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.facade.SaveSettings(c.Request.Context(), &settings); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, settings))
}

// GetSuspendedSales lists parked carts (always served locally)
// @Summary      List suspended sales
// @Tags         sales
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.SuspendedSale}
// @Router       /api/suspended-sales [get]
func (h *POSHandler) GetSuspendedSales(c *gin.Context) {
	sales, err := h.facade.GetSuspendedSales(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sales))
}

// AddSuspendedSale parks a cart
// @Summary      Suspend sale
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        payload  body      model.SuspendedSale  true  "Cart"
// @Success      201      {object}  response.Response{data=model.SuspendedSale}
// @Router       /api/suspended-sales [post]
func (h *POSHandler) AddSuspendedSale(c *gin.Context) {
	var sale model.SuspendedSale
	if err := c.ShouldBindJSON(&sale); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.facade.AddSuspendedSale(c.Request.Context(), &sale); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, sale))
}

// RemoveSuspendedSale discards a parked cart
// @Summary      Remove suspended sale
// @Tags         sales
// @Produce      json
// @Param        id   path      string  true  "Suspended sale ID"
// @Success      200  {object}  response.Response
// @Router       /api/suspended-sales/{id} [delete]
func (h *POSHandler) RemoveSuspendedSale(c *gin.Context) {
	if err := h.facade.RemoveSuspendedSale(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, nil))
}
