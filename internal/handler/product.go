package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/online-auction/internal/model"
	"github.com/iliyamo/online-auction/internal/repository"
)

// ProductHandler implements product CRUD for sellers plus the public
// product view.
type ProductHandler struct {
	Products *repository.ProductRepo
}

type productRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       uint32          `json:"stock"`
	IsActive    *bool           `json:"is_active"`
}

type productResponse struct {
	ID          uint64          `json:"id"`
	SellerID    uint64          `json:"seller_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       uint32          `json:"stock"`
	IsActive    bool            `json:"is_active"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
	}
}

// Create registers a new product under the authenticated seller.
func (h *ProductHandler) Create(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" || !req.Price.IsPositive() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and a positive price are required"})
	}
	p := &model.Product{
		SellerID:    uid,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		IsActive:    true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := h.Products.Create(c.Request().Context(), p); err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, toProductResponse(p))
}

// Get returns a single product.  Public.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	p, err := h.Products.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}

// ListMine returns the authenticated seller's products.
func (h *ProductHandler) ListMine(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	products, err := h.Products.ListBySeller(c.Request().Context(), uid)
	if err != nil {
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Update rewrites a product's mutable fields.  Sellers may only touch
// their own products; admins may touch any.
func (h *ProductHandler) Update(c echo.Context) error {
	uid, ok := getUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product id"})
	}
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != nil {
		p.Description = req.Description
	}
	if req.Price.IsPositive() {
		p.Price = req.Price
	}
	if req.Stock != 0 {
		p.Stock = req.Stock
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	ownerID := uid
	if getRole(c) == model.RoleAdmin {
		ownerID = 0 // skip the ownership check
	}
	if err := h.Products.Update(ctx, p, ownerID); err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toProductResponse(p))
}
