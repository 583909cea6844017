package enums

import "fmt"

// PaymentGatewayType selects which payment backend charges a market.
type PaymentGatewayType string

const (
	PaymentGatewayTypePlatform PaymentGatewayType = "platform"
	PaymentGatewayTypePersonal PaymentGatewayType = "personal"
)

var validPaymentGatewayTypes = []PaymentGatewayType{
	PaymentGatewayTypePlatform,
	PaymentGatewayTypePersonal,
}

// String implements fmt.Stringer.
func (t PaymentGatewayType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t PaymentGatewayType) IsValid() bool {
	for _, candidate := range validPaymentGatewayTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePaymentGatewayType converts raw input into a PaymentGatewayType.
func ParsePaymentGatewayType(value string) (PaymentGatewayType, error) {
	for _, candidate := range validPaymentGatewayTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment gateway type %q", value)
}
