package domain

// DefaultAddress is the sentinel for "no shipping address configured yet".
// New users start with it; checkout refuses to proceed until it changes.
const DefaultAddress = "ADDRESS_NOT_SET"

// MinAddressLength is the shortest address the ledger accepts.
const MinAddressLength = 20

type User struct {
	Email   string
	Wallet  Money
	Address string
}

func (u User) HasShippingAddress() bool {
	return u.Address != "" && u.Address != DefaultAddress
}
