package enums

import "fmt"

// OrderStatus tracks the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPlaced           OrderStatus = "PLACED"
	OrderStatusShipped          OrderStatus = "SHIPPED"
	OrderStatusDelivered        OrderStatus = "DELIVERED"
	OrderStatusCancelledByAdmin OrderStatus = "CANCELLED_BY_ADMIN"
	OrderStatusCancelledByUser  OrderStatus = "CANCELLED_BY_USER"
	OrderStatusReturned         OrderStatus = "RETURNED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelledByAdmin,
	OrderStatusCancelledByUser,
	OrderStatusReturned,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further fulfillment transitions are allowed.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusCancelledByAdmin, OrderStatusCancelledByUser, OrderStatusReturned:
		return true
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
