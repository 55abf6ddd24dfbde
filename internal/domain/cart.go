package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Cart is the single per-owner document the engine mutates. Version is the
// optimistic-concurrency token: every save compares it against the stored
// value and bumps it on success.
type Cart struct {
	OwnerID string
	Items   []CartItem
	Version int64
}

// CartItem keeps a full snapshot of the product as it was when added, so a
// later catalog price change does not alter the item's recorded cost basis.
type CartItem struct {
	Product  Product
	Quantity int64

	CreatedAt time.Time
}

// FindItem returns the index of the line item referencing productID, or -1.
func (c *Cart) FindItem(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

// RemoveItem deletes the line item at index i, preserving the relative order
// of the remaining items.
func (c *Cart) RemoveItem(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// TotalCost sums cost*quantity over all line items using the captured
// product snapshots, not a fresh catalog read.
func (c *Cart) TotalCost() (Money, error) {
	total := Money{Currency: DefaultCurrency}
	if len(c.Items) > 0 {
		total = c.Items[0].Product.Cost.Zero()
	}

	for _, item := range c.Items {
		line := item.Product.Cost.Mul(item.Quantity)

		var err error
		total, err = total.Add(line)
		if err != nil {
			return Money{}, fmt.Errorf("total.Add: %w", err)
		}
	}

	return total, nil
}
