package checkout

import (
	"strings"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Сообщения ошибок полей формы оформления.
const (
	MsgRequired       = "This field is required"
	MsgInvalidEmail   = "Please enter a valid email address"
	MsgCardRequired   = "Required"
	MsgEmptyCart      = "Your cart is empty"
	MsgInvalidPayment = "Please select a valid payment method"
)

// Validate проверяет черновик и корзину. Пустой результат означает, что заказ можно оформлять.
func Validate(draft domain.CheckoutDraft, cart domain.CartSnapshot) *domain.ValidationErrors {
	errs := domain.NewValidationErrors()

	if len(cart.Items) == 0 {
		errs.Add("cart", MsgEmptyCart)
	}

	shipping := draft.Shipping
	required := []struct {
		field string
		value string
	}{
		{"firstName", shipping.FirstName},
		{"lastName", shipping.LastName},
		{"address", shipping.Address},
		{"city", shipping.City},
		{"country", shipping.Country},
		{"postalCode", shipping.PostalCode},
		{"phone", shipping.Phone},
		{"email", shipping.Email},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs.Add(r.field, MsgRequired)
		}
	}
	if shipping.Email != "" && !domain.ValidEmail(shipping.Email) {
		errs.Set("email", MsgInvalidEmail)
	}

	switch draft.PaymentMethod {
	case domain.PaymentMethodCreditCard:
		card := draft.Card
		cardFields := []struct {
			field string
			value string
		}{
			{"cardNumber", card.Number},
			{"cardName", card.HolderName},
			{"expiryDate", card.Expiry},
			{"cvv", card.CVV},
		}
		for _, r := range cardFields {
			if strings.TrimSpace(r.value) == "" {
				errs.Add(r.field, MsgCardRequired)
			}
		}
	case domain.PaymentMethodPayPal, domain.PaymentMethodBankTransfer:
	default:
		errs.Add("paymentMethod", MsgInvalidPayment)
	}

	return errs
}
