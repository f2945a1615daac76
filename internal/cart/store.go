// Package cart contient le panier d'une session : une liste ordonnée de lignes
// (produit + quantité), au plus une ligne par produit.
//
// Un Store appartient à une seule session et n'est pas sûr pour un usage
// concurrent ; la couche session sérialise les accès.
package cart

import "storefront_back_end/internal/models"

// Types de notification envoyés au listener
const (
	ChangeUpdated = "updated"
	ChangeCleared = "cleared"
)

// Listener est appelé après chaque mutation effective du panier
type Listener func(change string)

type Store struct {
	items    []models.CartItem
	listener Listener
}

func New() *Store {
	return &Store{items: []models.CartItem{}}
}

// WithListener branche une notification (pub/sub de synchronisation par exemple)
func (s *Store) WithListener(l Listener) *Store {
	s.listener = l
	return s
}

func (s *Store) notify(change string) {
	if s.listener != nil {
		s.listener(change)
	}
}

func (s *Store) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			return i
		}
	}
	return -1
}

// Add ajoute une quantité au produit. La quantité cumulée n'est pas plafonnée au stock.
func (s *Store) Add(product models.Product, quantity int) {
	if quantity <= 0 {
		return
	}
	if i := s.indexOf(product.ID); i >= 0 {
		s.items[i].Quantity += quantity
	} else {
		s.items = append(s.items, models.CartItem{Product: product, Quantity: quantity})
	}
	s.notify(ChangeUpdated)
}

// UpdateQuantity fixe la quantité ; 0 ou moins supprime la ligne
func (s *Store) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		s.Remove(productID)
		return
	}
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items[i].Quantity = quantity
	s.notify(ChangeUpdated)
}

func (s *Store) Remove(productID string) {
	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.notify(ChangeUpdated)
}

func (s *Store) Clear() {
	s.items = []models.CartItem{}
	s.notify(ChangeCleared)
}

// Total retourne la somme prix × quantité en devise de base
func (s *Store) Total() float64 {
	total := 0.0
	for _, item := range s.items {
		total += item.LineTotal()
	}
	return total
}

// ItemCount retourne la somme des quantités (pas le nombre de produits distincts)
func (s *Store) ItemCount() int {
	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	return count
}

// lineCount retourne le nombre de lignes distinctes
func (s *Store) lineCount() int {
	return len(s.items)
}

// quantityOf retourne la quantité d'un produit, 0 s'il est absent
func (s *Store) quantityOf(productID string) int {
	if i := s.indexOf(productID); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

// Items retourne une copie des lignes dans l'ordre d'insertion
func (s *Store) Items() []models.CartItem {
	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}
