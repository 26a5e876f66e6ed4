// Package cart holds the in-progress order for one parent: a list of
// (menu item, quantity) lines persisted through a pluggable Storage so
// the cart survives across sessions.
package cart

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StorageKey is the fixed name the serialized line list is stored under.
const StorageKey = "cart"

// Line is one menu item selection. Price and name are snapshots taken when
// the item was added; the order pipeline re-prices from the live catalog.
type Line struct {
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int32           `json:"quantity"`
}

// Item is a menu item snapshot passed to Add.
type Item struct {
	ID    uuid.UUID
	Name  string
	Price decimal.Decimal
}

// Storage persists the serialized line list under StorageKey.
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Clear(ctx context.Context) error
}

// Cart is a single-owner, synchronous line collection. Not safe for
// concurrent use; each request loads its own instance.
type Cart struct {
	lines   []Line
	storage Storage
}

func New(storage Storage) *Cart {
	return &Cart{storage: storage}
}

// Load rehydrates the cart from storage. Corrupt stored data is discarded
// and the cart resets to empty; only storage I/O errors are returned.
func (c *Cart) Load(ctx context.Context) error {
	data, err := c.storage.Load(ctx)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		c.lines = nil
		return nil
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		c.lines = nil
		return nil
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			c.lines = nil
			return nil
		}
	}
	c.lines = lines
	return nil
}

// Add increments the quantity for the given item, creating a line on first
// add. No upper bound is enforced.
func (c *Cart) Add(ctx context.Context, item Item) error {
	for i := range c.lines {
		if c.lines[i].MenuItemID == item.ID {
			c.lines[i].Quantity++
			return c.save(ctx)
		}
	}
	c.lines = append(c.lines, Line{
		MenuItemID: item.ID,
		Name:       item.Name,
		Price:      item.Price,
		Quantity:   1,
	})
	return c.save(ctx)
}

// Remove decrements the quantity for the given menu item; the line is
// dropped entirely when the quantity would fall to zero.
func (c *Cart) Remove(ctx context.Context, menuItemID uuid.UUID) error {
	for i := range c.lines {
		if c.lines[i].MenuItemID != menuItemID {
			continue
		}
		if c.lines[i].Quantity > 1 {
			c.lines[i].Quantity--
		} else {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return c.save(ctx)
	}
	return nil
}

// Clear empties the cart and removes the stored value.
func (c *Cart) Clear(ctx context.Context) error {
	c.lines = nil
	return c.storage.Clear(ctx)
}

func (c *Cart) QuantityOf(menuItemID uuid.UUID) int32 {
	for _, l := range c.lines {
		if l.MenuItemID == menuItemID {
			return l.Quantity
		}
	}
	return 0
}

func (c *Cart) TotalItems() int32 {
	var total int32
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt32(l.Quantity)))
	}
	return total
}

// Lines returns a copy of the current line list.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) save(ctx context.Context) error {
	data, err := json.Marshal(c.lines)
	if err != nil {
		return err
	}
	return c.storage.Save(ctx, data)
}
