// Package currency convertit les montants de la devise de base (USD) vers la
// devise d'affichage (INR) avec un taux fixe.
package currency

import "strconv"

const (
	USDToINR = 83.5
	Symbol   = "₹"
)

// ConvertToINR retourne le montant converti, sans arrondi
func ConvertToINR(amount float64) float64 {
	return amount * USDToINR
}

// FormatPrice affiche le montant converti avec exactement deux décimales
func FormatPrice(amount float64) string {
	return Symbol + strconv.FormatFloat(ConvertToINR(amount), 'f', 2, 64)
}

func FormatCartTotal(amount float64) string {
	return FormatPrice(amount)
}

// FormatUSD affiche un montant dans la devise de base (récapitulatif du checkout)
func FormatUSD(amount float64) string {
	return "$" + strconv.FormatFloat(amount, 'f', 2, 64)
}
