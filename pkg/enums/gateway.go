package enums

import "fmt"

// Gateway is the closed set of supported payment providers. Adapter selection
// always dispatches on this discriminant, never on free-form provider strings.
type Gateway string

const (
	GatewayRazorpay Gateway = "razorpay"
	GatewayStripe   Gateway = "stripe"
	GatewayCCAvenue Gateway = "ccavenue"
)

var validGateways = []Gateway{
	GatewayRazorpay,
	GatewayStripe,
	GatewayCCAvenue,
}

// String implements fmt.Stringer.
func (g Gateway) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Gateway.
func (g Gateway) IsValid() bool {
	for _, candidate := range validGateways {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGateway converts raw input into a Gateway.
func ParseGateway(value string) (Gateway, error) {
	for _, candidate := range validGateways {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway %q", value)
}
