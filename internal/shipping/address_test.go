package shipping

import (
	"testing"

	"github.com/rastuci/api/internal/domain"
)

func TestParseFreeTextAddressStreetAndNumber(t *testing.T) {
	parsed := parseFreeTextAddress("Av. Corrientes 1234, CABA")
	if parsed.StreetName != "Av. Corrientes" {
		t.Fatalf("street = %q, want Av. Corrientes", parsed.StreetName)
	}
	if parsed.StreetNumber != "1234" {
		t.Fatalf("number = %q, want 1234", parsed.StreetNumber)
	}
	if parsed.City != "CABA" {
		t.Fatalf("city = %q, want CABA", parsed.City)
	}
}

func TestParseFreeTextAddressNoNumber(t *testing.T) {
	parsed := parseFreeTextAddress("Calle Sin Numero, Ciudad")
	if parsed.StreetName != "Calle Sin Numero" {
		t.Fatalf("street = %q", parsed.StreetName)
	}
	if parsed.StreetNumber != "S/N" {
		t.Fatalf("number = %q, want S/N", parsed.StreetNumber)
	}
}

func TestParseFreeTextAddressPostalCodeScan(t *testing.T) {
	parsed := parseFreeTextAddress("Av. San Martín 500, 1704 Ramos Mejía")
	if parsed.PostalCode != "1704" {
		t.Fatalf("postal = %q, want 1704", parsed.PostalCode)
	}
	if parsed.StreetName != "Av. San Martín" || parsed.StreetNumber != "500" {
		t.Fatalf("street = %q %q", parsed.StreetName, parsed.StreetNumber)
	}
}

func TestParseFreeTextAddressFourSegmentsUsesFourthAsCity(t *testing.T) {
	parsed := parseFreeTextAddress("Mitre 45, Piso 2, Depto B, Lanús")
	if parsed.City != "Lanús" {
		t.Fatalf("city = %q, want Lanús", parsed.City)
	}
}

func TestParseFreeTextAddressEmpty(t *testing.T) {
	parsed := parseFreeTextAddress("   ")
	if parsed.StreetName != "" || parsed.StreetNumber != "S/N" || parsed.City != "" || parsed.PostalCode != "" {
		t.Fatalf("unexpected parse of blank address: %+v", parsed)
	}
}

func TestResolveAddressPrefersStructuredFields(t *testing.T) {
	order := domain.Order{
		Shipping: domain.ShippingAddress{
			Street:     "Lavalle",
			Number:     "742",
			City:       "Rosario",
			PostalCode: "2000",
		},
		Customer: domain.Customer{Address: "Otra Calle 99, Otra Ciudad"},
	}
	resolved := ResolveAddress(order)
	if resolved.StreetName != "Lavalle" || resolved.StreetNumber != "742" {
		t.Fatalf("street = %q %q", resolved.StreetName, resolved.StreetNumber)
	}
	if resolved.City != "Rosario" || resolved.PostalCode != "2000" {
		t.Fatalf("city/postal = %q %q", resolved.City, resolved.PostalCode)
	}
	if resolved.ProvinceCode != "S" {
		t.Fatalf("province = %q, want S from postal 2000", resolved.ProvinceCode)
	}
}

func TestResolveAddressFallsBackToFreeText(t *testing.T) {
	order := domain.Order{
		Customer: domain.Customer{
			Address: "Av. Corrientes 1234, CABA",
		},
	}
	resolved := ResolveAddress(order)
	if resolved.StreetName != "Av. Corrientes" || resolved.StreetNumber != "1234" {
		t.Fatalf("street = %q %q", resolved.StreetName, resolved.StreetNumber)
	}
	if resolved.City != "CABA" {
		t.Fatalf("city = %q", resolved.City)
	}
	if resolved.PostalCode != "1234" {
		t.Fatalf("postal = %q, want first 4-digit token", resolved.PostalCode)
	}
}

func TestResolveAddressPostalFallbackConstant(t *testing.T) {
	order := domain.Order{
		Customer: domain.Customer{Address: "Calle Sin Numero, Ciudad"},
	}
	resolved := ResolveAddress(order)
	if resolved.PostalCode != fallbackPostalCode {
		t.Fatalf("postal = %q, want fallback %q", resolved.PostalCode, fallbackPostalCode)
	}
}

func TestResolveProvinceCodeStoredCodeWins(t *testing.T) {
	if got := ResolveProvinceCode("x", "Buenos Aires", "1000"); got != "X" {
		t.Fatalf("got %q, want stored code X", got)
	}
}

func TestResolveProvinceCodeNameLookupStripsDiacritics(t *testing.T) {
	cases := map[string]string{
		"Córdoba":                         "X",
		"CORDOBA":                         "X",
		"Entre Ríos":                      "E",
		"Tucumán":                         "T",
		"ciudad autónoma de buenos aires": "C",
		"Santa Fe":                        "S",
	}
	for name, want := range cases {
		if got := ResolveProvinceCode("", name, ""); got != want {
			t.Fatalf("ResolveProvinceCode(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestResolveProvinceCodePostalHeuristic(t *testing.T) {
	cases := map[string]string{
		"1000": "C",
		"1499": "C",
		"5000": "X",
		"5999": "X",
		"2000": "S",
		"2999": "S",
		"1700": "B",
		"8000": "B",
		"":     "B",
		"abcd": "B",
	}
	for postal, want := range cases {
		if got := ResolveProvinceCode("", "Provincia Desconocida", postal); got != want {
			t.Fatalf("postal %q resolved to %q, want %q", postal, got, want)
		}
	}
}
