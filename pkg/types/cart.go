package types

// CartKind names which of the two carts a value belongs to.
type CartKind string

// Cart kinds.
const (
	CartGuest CartKind = "guest"
	CartUser  CartKind = "user"
)

// CartItem is one line in a cart. The line id is the pet id.
type CartItem struct {
	ID  int64 `json:"id"`
	Pet Pet   `json:"pet"`
}

// Cart is an ordered collection of cart items.
type Cart struct {
	Items []CartItem `json:"items"`
	Total int        `json:"total"`
}

// NewCart builds a cart from a pet list, keeping the first occurrence of
// each pet id. The result always has a non-nil Items slice.
func NewCart(pets []Pet) Cart {
	items := make([]CartItem, 0, len(pets))
	seen := make(map[int64]bool, len(pets))
	for _, p := range pets {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		items = append(items, CartItem{ID: p.ID, Pet: p})
	}
	return Cart{Items: items, Total: len(items)}
}

// EmptyCart returns a cart with no items.
func EmptyCart() Cart {
	return Cart{Items: []CartItem{}}
}

// IsEmpty reports whether the cart has no items.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Contains reports whether the cart holds the given pet.
func (c Cart) Contains(petID int64) bool {
	for _, it := range c.Items {
		if it.Pet.ID == petID {
			return true
		}
	}
	return false
}

// PetIDs returns the pet ids in cart order.
func (c Cart) PetIDs() []int64 {
	ids := make([]int64, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.Pet.ID)
	}
	return ids
}

// Clone returns a deep copy of the item slice so callers cannot alias
// internal state.
func (c Cart) Clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items, Total: c.Total}
}
