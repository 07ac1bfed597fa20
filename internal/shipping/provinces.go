package shipping

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// provinceCodes maps normalised province names to their ISO 3166-2:AR codes,
// which is the vocabulary the courier API expects.
var provinceCodes = map[string]string{
	"buenos aires":                    "B",
	"provincia de buenos aires":       "B",
	"capital federal":                 "C",
	"ciudad autonoma de buenos aires": "C",
	"ciudad de buenos aires":          "C",
	"caba":                            "C",
	"catamarca":                       "K",
	"chaco":                           "H",
	"chubut":                          "U",
	"cordoba":                         "X",
	"corrientes":                      "W",
	"entre rios":                      "E",
	"formosa":                         "P",
	"jujuy":                           "Y",
	"la pampa":                        "L",
	"la rioja":                        "F",
	"mendoza":                         "M",
	"misiones":                        "N",
	"neuquen":                         "Q",
	"rio negro":                       "R",
	"salta":                           "A",
	"san juan":                        "J",
	"san luis":                        "D",
	"santa cruz":                      "Z",
	"santa fe":                        "S",
	"santiago del estero":             "G",
	"tierra del fuego":                "V",
	"tucuman":                         "T",
}

var validProvinceCodes = map[string]struct{}{
	"A": {}, "B": {}, "C": {}, "D": {}, "E": {}, "F": {}, "G": {}, "H": {},
	"J": {}, "K": {}, "L": {}, "M": {}, "N": {}, "P": {}, "Q": {}, "R": {},
	"S": {}, "T": {}, "U": {}, "V": {}, "W": {}, "X": {}, "Y": {}, "Z": {},
}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeProvinceName folds case and strips diacritics so "Córdoba",
// "CORDOBA" and "cordoba" all hit the same table entry.
func normalizeProvinceName(name string) string {
	folded := strings.ToLower(strings.TrimSpace(name))
	if folded == "" {
		return ""
	}
	stripped, _, err := transform.String(stripDiacritics, folded)
	if err != nil {
		return folded
	}
	return strings.Join(strings.Fields(stripped), " ")
}

// ResolveProvinceCode cascades through the available province signals: the
// explicitly stored code, a name lookup against the static table, and finally
// a postal-code range heuristic with Buenos Aires as the catch-all default.
func ResolveProvinceCode(storedCode, provinceName, postalCode string) string {
	code := strings.ToUpper(strings.TrimSpace(storedCode))
	if _, ok := validProvinceCodes[code]; ok {
		return code
	}
	if name := normalizeProvinceName(provinceName); name != "" {
		if code, ok := provinceCodes[name]; ok {
			return code
		}
	}
	return provinceCodeFromPostal(postalCode)
}

// provinceCodeFromPostal guesses the province from the numeric postal range.
// Coarse on purpose: it only runs when both the stored code and the province
// name failed to resolve.
func provinceCodeFromPostal(postalCode string) string {
	n, err := strconv.Atoi(strings.TrimSpace(postalCode))
	if err != nil {
		return "B"
	}
	switch {
	case n >= 1000 && n <= 1499:
		return "C"
	case n >= 5000 && n <= 5999:
		return "X"
	case n >= 2000 && n <= 2999:
		return "S"
	default:
		return "B"
	}
}
