package services

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const receiptQRSize = 256

// ReceiptQR encode l'identifiant de commande dans un QR code PNG
func ReceiptQR(orderID string) ([]byte, error) {
	if orderID == "" {
		return nil, fmt.Errorf("identifiant de commande vide")
	}
	png, err := qrcode.Encode("order:"+orderID, qrcode.Medium, receiptQRSize)
	if err != nil {
		return nil, fmt.Errorf("génération QR code: %w", err)
	}
	return png, nil
}
