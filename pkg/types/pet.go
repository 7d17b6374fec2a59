package types

// Shelter is the owning shelter account as embedded in pet responses.
type Shelter struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Pet is the pet record returned by the cart endpoints.
type Pet struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	ImageURLs   string   `json:"imageUrls,omitempty"`
	Description string   `json:"description,omitempty"`
	Age         int      `json:"age"`
	Breed       string   `json:"breed,omitempty"`
	Location    string   `json:"location,omitempty"`
	Status      string   `json:"status,omitempty"`
	Shelter     *Shelter `json:"shelter,omitempty"`
}
