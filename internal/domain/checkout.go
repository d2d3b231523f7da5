package domain

// CardDetails содержит реквизиты карты. В заказ не попадают.
type CardDetails struct {
	Number     string `json:"cardNumber"`
	HolderName string `json:"cardName"`
	Expiry     string `json:"expiryDate"`
	CVV        string `json:"cvv"`
}

// Masked скрывает реквизиты для ответов API.
func (c CardDetails) Masked() CardDetails {
	masked := CardDetails{HolderName: c.HolderName, Expiry: c.Expiry}
	if n := len(c.Number); n > 4 {
		masked.Number = "****" + c.Number[n-4:]
	} else if n > 0 {
		masked.Number = "****"
	}
	if c.CVV != "" {
		masked.CVV = "***"
	}
	return masked
}

// CheckoutDraft хранит изменяемое состояние формы оформления в рамках одной попытки.
type CheckoutDraft struct {
	Shipping      ShippingInfo  `json:"shippingInfo"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	Card          CardDetails   `json:"card"`
	Notes         string        `json:"notes"`
}

// NewCheckoutDraft возвращает пустой черновик с оплатой картой по умолчанию.
func NewCheckoutDraft() CheckoutDraft {
	return CheckoutDraft{PaymentMethod: PaymentMethodCreditCard}
}

// MergeShipping переносит непустые поля patch поверх текущих значений.
func (d *CheckoutDraft) MergeShipping(patch ShippingInfo) {
	merge := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	merge(&d.Shipping.FirstName, patch.FirstName)
	merge(&d.Shipping.LastName, patch.LastName)
	merge(&d.Shipping.Address, patch.Address)
	merge(&d.Shipping.City, patch.City)
	merge(&d.Shipping.State, patch.State)
	merge(&d.Shipping.PostalCode, patch.PostalCode)
	merge(&d.Shipping.Country, patch.Country)
	merge(&d.Shipping.Phone, patch.Phone)
	merge(&d.Shipping.Email, patch.Email)
}

// CheckoutState определяет состояние оркестратора оформления заказа.
type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "idle"
	CheckoutValidating CheckoutState = "validating"
	CheckoutSubmitting CheckoutState = "submitting"
	CheckoutCommitted  CheckoutState = "committed"
	CheckoutFailed     CheckoutState = "failed"
)
