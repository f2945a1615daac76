package models

// CartItem associe un instantané du produit à une quantité (toujours >= 1)
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal retourne prix × quantité dans la devise de base
func (i CartItem) LineTotal() float64 {
	return i.Product.Price * float64(i.Quantity)
}
