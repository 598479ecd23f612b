package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/cart"
	"medconnect-server/internal/models"
	"medconnect-server/internal/orders"
	"medconnect-server/internal/store"
	"medconnect-server/internal/utils"
)

// CatalogRepository reads the pharmacy and lab catalogs.
type CatalogRepository interface {
	ListMedicines(ctx context.Context, f store.CatalogFilter) ([]models.Medicine, error)
	GetMedicine(ctx context.Context, id string) (*models.Medicine, error)
	ListLabTests(ctx context.Context, f store.CatalogFilter) ([]models.LabTest, error)
	GetLabTest(ctx context.Context, id string) (*models.LabTest, error)
}

// CommerceHandler serves the catalogs, carts and orders.
type CommerceHandler struct {
	catalog CatalogRepository
	carts   *cart.Service
	orders  *orders.Service
}

func NewCommerceHandler(catalog CatalogRepository, carts *cart.Service, orderSvc *orders.Service) *CommerceHandler {
	return &CommerceHandler{catalog: catalog, carts: carts, orders: orderSvc}
}

func catalogFilter(c *gin.Context) store.CatalogFilter {
	return store.CatalogFilter{Query: c.Query("q"), Category: c.Query("category")}
}

func (h *CommerceHandler) ListMedicines(c *gin.Context) {
	items, err := h.catalog.ListMedicines(c.Request.Context(), catalogFilter(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Medicines fetched successfully", items)
}

func (h *CommerceHandler) GetMedicine(c *gin.Context) {
	item, err := h.catalog.GetMedicine(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Medicine fetched successfully", item)
}

func (h *CommerceHandler) ListLabTests(c *gin.Context) {
	items, err := h.catalog.ListLabTests(c.Request.Context(), catalogFilter(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Lab tests fetched successfully", items)
}

func (h *CommerceHandler) GetLabTest(c *gin.Context) {
	item, err := h.catalog.GetLabTest(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Lab test fetched successfully", item)
}

func cartKind(c *gin.Context) models.CartKind {
	return models.CartKind(c.Param("kind"))
}

// GetCart handles GET /cart/:kind.
func (h *CommerceHandler) GetCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	view, err := h.carts.Get(c.Request.Context(), actor, cartKind(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Cart fetched successfully", view)
}

// AddCartItemRequest adds a catalog item to a cart. Quantity defaults to 1.
type AddCartItemRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

func (h *CommerceHandler) AddCartItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	view, err := h.carts.Add(c.Request.Context(), actor, cartKind(c), req.ItemID, req.Quantity)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	msg := "Item added to cart"
	if view.Outcome == cart.OutcomeAlreadyInCart {
		msg = "Item is already in the cart"
	}
	utils.Success(c, msg, view)
}

// SetQuantityRequest sets a line's quantity; zero or less removes it.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CommerceHandler) SetCartQuantity(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	view, err := h.carts.SetQuantity(c.Request.Context(), actor, cartKind(c), c.Param("itemId"), req.Quantity)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Cart updated", view)
}

func (h *CommerceHandler) RemoveCartItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	view, err := h.carts.Remove(c.Request.Context(), actor, cartKind(c), c.Param("itemId"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Item removed from cart", view)
}

func (h *CommerceHandler) ClearCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	view, err := h.carts.Clear(c.Request.Context(), actor, cartKind(c))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Cart cleared", view)
}

// Checkout handles POST /cart/:kind/checkout.
func (h *CommerceHandler) Checkout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req cart.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	order, err := h.carts.Checkout(c.Request.Context(), actor, cartKind(c), req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Order placed successfully", order)
}

// ListOrders handles GET /orders?kind=&status=.
func (h *CommerceHandler) ListOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	list, err := h.orders.List(c.Request.Context(), actor, models.CartKind(c.Query("kind")), models.OrderStatus(c.Query("status")))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Orders fetched successfully", list)
}

func (h *CommerceHandler) GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Order fetched successfully", order)
}

func (h *CommerceHandler) UpdateOrderStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req orders.StatusChange
	if !utils.BindAndValidate(c, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Order "+string(order.Status), order)
}
