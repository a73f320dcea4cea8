package types

import "strings"

// Address is the shipping address snapshot stored on orders. Persisted as jsonb.
type Address struct {
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country,omitempty"`
}

// MissingFields lists the required fields that did not resolve to a value.
func (a Address) MissingFields() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("phone", a.Phone)
	check("street", a.Street)
	check("city", a.City)
	check("state", a.State)
	check("zip", a.Zip)
	return missing
}

// MergeFrom fills each empty field from the fallback address.
func (a Address) MergeFrom(fallback Address) Address {
	merged := a
	if strings.TrimSpace(merged.FullName) == "" {
		merged.FullName = fallback.FullName
	}
	if strings.TrimSpace(merged.Phone) == "" {
		merged.Phone = fallback.Phone
	}
	if strings.TrimSpace(merged.Street) == "" {
		merged.Street = fallback.Street
	}
	if strings.TrimSpace(merged.City) == "" {
		merged.City = fallback.City
	}
	if strings.TrimSpace(merged.State) == "" {
		merged.State = fallback.State
	}
	if strings.TrimSpace(merged.Zip) == "" {
		merged.Zip = fallback.Zip
	}
	if strings.TrimSpace(merged.Country) == "" {
		merged.Country = fallback.Country
	}
	return merged
}
