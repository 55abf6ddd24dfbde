package domain

import "github.com/google/uuid"

// Product is a catalog record. The catalog owns it; carts only hold copies
// captured at add-time.
type Product struct {
	ID   uuid.UUID
	Name string
	Cost Money
}
