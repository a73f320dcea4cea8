package enums

import "fmt"

// MovementType classifies entries in the append-only stock movement log.
type MovementType string

const (
	MovementTypeIn         MovementType = "IN"
	MovementTypeOut        MovementType = "OUT"
	MovementTypeReserved   MovementType = "RESERVED"
	MovementTypeUnreserved MovementType = "UNRESERVED"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
	MovementTypeReturn     MovementType = "RETURN"
)

var validMovementTypes = []MovementType{
	MovementTypeIn,
	MovementTypeOut,
	MovementTypeReserved,
	MovementTypeUnreserved,
	MovementTypeAdjustment,
	MovementTypeReturn,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
