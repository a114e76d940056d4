package catalog

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// VariationAttribute is one (name, option) pair describing a variation, e.g. ("Color", "Blue")
type VariationAttribute struct {
	Name   string `json:"name"`
	Option string `json:"option"`
}

var attributeFolder = cases.Fold()

// NormalizeAttributes validates attributes as received from the external catalog
// and returns the accepted ones, normalized, in their original order. Entries with an empty name or option, and repeated
// names (compared case-insensitively), are rejected with a reason each.
func NormalizeAttributes(raw []VariationAttribute) ([]VariationAttribute, []string) {
	attrs := make([]VariationAttribute, 0, len(raw))
	var rejected []string
	seen := make(map[string]struct{}, len(raw))

	for i, r := range raw {
		name := normalizeText(r.Name)
		option := normalizeText(r.Option)
		switch {
		case name == "":
			rejected = append(rejected, "attribute #"+strconv.Itoa(i)+": missing name")
			continue
		case option == "":
			rejected = append(rejected, "attribute "+name+": missing option")
			continue
		}
		key := attributeFolder.String(name)
		if _, dup := seen[key]; dup {
			rejected = append(rejected, "attribute "+name+": duplicated")
			continue
		}
		seen[key] = struct{}{}
		attrs = append(attrs, VariationAttribute{Name: name, Option: option})
	}
	return attrs, rejected
}

// normalizeText trims, collapses inner whitespace and converts to NFC
func normalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}
