package shipping

import (
	"regexp"
	"strings"

	"github.com/rastuci/api/internal/domain"
)

const (
	// streetNumberUnknown is the courier's "sin número" placeholder used when
	// the street number cannot be determined from the address text.
	streetNumberUnknown = "S/N"
	// fallbackPostalCode parks unresolvable destinations in the Buenos Aires
	// metropolitan area rather than failing the shipment outright.
	fallbackPostalCode = "1000"
)

var (
	streetWithNumberRe = regexp.MustCompile(`^(.*\S)\s+(\d+)\s*$`)
	postalCodeRe       = regexp.MustCompile(`\b\d{4}\b`)
)

// ResolvedAddress is a courier-ready destination produced by the resolution cascade.
type ResolvedAddress struct {
	StreetName   string
	StreetNumber string
	Floor        string
	Apartment    string
	City         string
	ProvinceCode string
	PostalCode   string
}

// parsedFreeText holds the fields recovered from a comma-separated address string.
type parsedFreeText struct {
	StreetName   string
	StreetNumber string
	City         string
	PostalCode   string
}

// parseFreeTextAddress recovers structured fields from a free-text address.
// The first comma segment is split into street name and trailing number, the
// city comes from the 4th segment when present or the 2nd otherwise, and the
// postal code is the first 4-digit token found anywhere in the string.
func parseFreeTextAddress(address string) parsedFreeText {
	parsed := parsedFreeText{StreetNumber: streetNumberUnknown}
	address = strings.TrimSpace(address)
	if address == "" {
		return parsed
	}

	segments := strings.Split(address, ",")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}

	if m := streetWithNumberRe.FindStringSubmatch(segments[0]); m != nil {
		parsed.StreetName = m[1]
		parsed.StreetNumber = m[2]
	} else {
		parsed.StreetName = segments[0]
	}

	switch {
	case len(segments) >= 4:
		parsed.City = segments[3]
	case len(segments) >= 2:
		parsed.City = segments[1]
	}

	if m := postalCodeRe.FindString(address); m != "" {
		parsed.PostalCode = m
	}
	return parsed
}

// ResolveAddress derives a courier-ready destination from an order. Structured
// shipping fields win; anything missing is recovered from the free-text
// customer address, and the province code is resolved through its own cascade.
func ResolveAddress(order domain.Order) ResolvedAddress {
	resolved := ResolvedAddress{
		StreetName:   strings.TrimSpace(order.Shipping.Street),
		StreetNumber: strings.TrimSpace(order.Shipping.Number),
		Floor:        strings.TrimSpace(order.Shipping.Floor),
		Apartment:    strings.TrimSpace(order.Shipping.Apartment),
		City:         strings.TrimSpace(order.Shipping.City),
		PostalCode:   strings.TrimSpace(order.Shipping.PostalCode),
	}

	if resolved.StreetName == "" || resolved.City == "" || resolved.PostalCode == "" {
		parsed := parseFreeTextAddress(order.Customer.Address)
		if resolved.StreetName == "" {
			resolved.StreetName = parsed.StreetName
			resolved.StreetNumber = parsed.StreetNumber
		}
		if resolved.City == "" {
			resolved.City = parsed.City
		}
		if resolved.PostalCode == "" {
			resolved.PostalCode = parsed.PostalCode
		}
	}

	if resolved.StreetNumber == "" {
		resolved.StreetNumber = streetNumberUnknown
	}
	if resolved.City == "" {
		resolved.City = strings.TrimSpace(order.Customer.City)
	}
	if resolved.PostalCode == "" {
		resolved.PostalCode = strings.TrimSpace(order.Customer.PostalCode)
	}
	if resolved.PostalCode == "" {
		resolved.PostalCode = fallbackPostalCode
	}

	province := order.Shipping.Province
	if strings.TrimSpace(province) == "" {
		province = order.Customer.Province
	}
	resolved.ProvinceCode = ResolveProvinceCode(order.Shipping.ProvinceCode, province, resolved.PostalCode)

	return resolved
}
