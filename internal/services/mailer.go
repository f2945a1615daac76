package services

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"storefront_back_end/internal/currency"
	"storefront_back_end/internal/models"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer envoie l'e-mail de confirmation de commande.
// Sans hôte SMTP, l'envoi est désactivé.
type Mailer struct {
	config  SMTPConfig
	timeout time.Duration
	send    func(ctx context.Context, msg *mail.Msg) error
}

func NewMailer(config SMTPConfig) *Mailer {
	if config.Port == 0 {
		config.Port = 587
	}
	m := &Mailer{config: config, timeout: 15 * time.Second}
	m.send = m.dialAndSend
	return m
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.config.Username),
			mail.WithPassword(m.config.Password),
		)
	}
	client, err := mail.NewClient(m.config.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func (m *Mailer) buildMessage(order models.Order, items []models.CartItem) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.config.From); err != nil {
		return nil, err
	}
	if err := msg.To(order.CustomerEmail); err != nil {
		return nil, err
	}
	msg.Subject("Confirmation de votre commande " + order.ID)
	msg.SetBodyString(mail.TypeTextHTML, OrderConfirmationHTML(order, items))
	return msg, nil
}

// OrderConfirmed envoie la confirmation en arrière-plan ; les erreurs sont loguées
func (m *Mailer) OrderConfirmed(order models.Order, items []models.CartItem) {
	if m == nil || m.config.Host == "" {
		return
	}
	msg, err := m.buildMessage(order, items)
	if err != nil {
		log.Printf("❌ E-mail de confirmation invalide pour %s: %v", order.ID, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		log.Println("📤 Envoi de l'e-mail à", order.CustomerEmail)
		if err := m.send(ctx, msg); err != nil {
			log.Printf("❌ Erreur envoi email confirmation: %v", err)
			return
		}
		log.Printf("📧 Confirmation envoyée pour la commande %s", order.ID)
	}()
}

// OrderConfirmationHTML génère le HTML de confirmation de commande
func OrderConfirmationHTML(order models.Order, items []models.CartItem) string {
	var rows strings.Builder
	for _, item := range items {
		fmt.Fprintf(&rows, `
			<tr>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%d</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
				<td style="padding: 10px; border: 1px solid #ddd;">%s</td>
			</tr>`,
			html.EscapeString(item.Product.Name), item.Quantity,
			currency.FormatPrice(item.Product.Price), currency.FormatPrice(item.LineTotal()))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<title>Confirmation de commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Merci pour votre commande, %s</h2>
		<p>Commande n° <strong>%s</strong></p>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #f0f0f0;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Produit</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>%s
			</tbody>
		</table>
		<p style="font-size: 18px;"><strong>Total : %s</strong></p>
		<p>Livraison : %s</p>
	</div>
</body>
</html>`,
		html.EscapeString(order.CustomerName), html.EscapeString(order.ID), rows.String(),
		currency.FormatPrice(order.TotalAmount), html.EscapeString(order.CustomerAddress))
}
