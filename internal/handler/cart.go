package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sekolah-kuliner/api/internal/cart"
	"github.com/sekolah-kuliner/api/internal/database"
	"github.com/sekolah-kuliner/api/internal/middleware"
)

// CartStore defines the database methods needed by cart handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CartStore interface {
	GetCartItems(ctx context.Context, parentID uuid.UUID) ([]byte, error)
	UpsertCartItems(ctx context.Context, arg database.UpsertCartItemsParams) error
	DeleteCart(ctx context.Context, parentID uuid.UUID) error
	GetMenuItemForOrder(ctx context.Context, id uuid.UUID) (database.GetMenuItemForOrderRow, error)
}

// CartHandler exposes the authenticated parent's server-persisted cart.
type CartHandler struct {
	store CartStore
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(store CartStore) *CartHandler {
	return &CartHandler{store: store}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cart", h.Get)
	r.Post("/cart/items", h.AddItem)
	r.Delete("/cart/items/{id}", h.RemoveItem)
	r.Delete("/cart", h.Clear)
}

// --- Storage adapter ---

// dbCartStorage adapts the carts table to cart.Storage for one parent.
type dbCartStorage struct {
	store    CartStore
	parentID uuid.UUID
}

func (s *dbCartStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.store.GetCartItems(ctx, s.parentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return data, err
}

func (s *dbCartStorage) Save(ctx context.Context, data []byte) error {
	return s.store.UpsertCartItems(ctx, database.UpsertCartItemsParams{
		ParentID: s.parentID,
		Items:    data,
	})
}

func (s *dbCartStorage) Clear(ctx context.Context) error {
	return s.store.DeleteCart(ctx, s.parentID)
}

func (h *CartHandler) loadCart(ctx context.Context, parentID uuid.UUID) (*cart.Cart, error) {
	c := cart.New(&dbCartStorage{store: h.store, parentID: parentID})
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// --- Request / Response types ---

type addCartItemRequest struct {
	MenuItemID string `json:"menu_item_id"`
}

type cartLineResponse struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	Quantity   int32     `json:"quantity"`
}

type cartResponse struct {
	Items      []cartLineResponse `json:"items"`
	TotalItems int32              `json:"total_items"`
	TotalPrice string             `json:"total_price"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	lines := c.Lines()
	resp := cartResponse{
		Items:      make([]cartLineResponse, len(lines)),
		TotalItems: c.TotalItems(),
		TotalPrice: c.TotalPrice().StringFixed(2),
	}
	for i, line := range lines {
		resp.Items[i] = cartLineResponse{
			MenuItemID: line.MenuItemID,
			Name:       line.Name,
			Price:      line.Price.StringFixed(2),
			Quantity:   line.Quantity,
		}
	}
	return resp
}

// --- Handlers ---

// Get returns the current cart contents.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	c, err := h.loadCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: load cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// AddItem increments the quantity of a menu item in the cart, adding a new
// line when needed. Name and price snapshots come from the live catalog,
// never from the client.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req addCartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu_item_id"})
		return
	}

	item, err := h.store.GetMenuItemForOrder(r.Context(), menuItemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: get menu item for cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !item.IsAvailable {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "menu item is not available"})
		return
	}

	c, err := h.loadCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: load cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := c.Add(r.Context(), cart.Item{
		ID:    item.ID,
		Name:  item.Name,
		Price: numericToDecimal(item.Price),
	}); err != nil {
		log.Printf("ERROR: save cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveItem decrements the quantity of a menu item, dropping the line at
// zero. Removing an item that is not in the cart is a no-op.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	menuItemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	c, err := h.loadCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: load cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := c.Remove(r.Context(), menuItemID); err != nil {
		log.Printf("ERROR: save cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// Clear empties the cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	c, err := h.loadCart(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: load cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := c.Clear(r.Context()); err != nil {
		log.Printf("ERROR: clear cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(c))
}
