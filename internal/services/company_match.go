package services

import (
	"fmt"
	"strings"

	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"gorm.io/gorm"
)

var legalSuffixes = map[string]bool{
	"inc": true, "llc": true, "ltd": true, "limited": true, "corp": true,
	"corporation": true, "co": true, "gmbh": true, "plc": true, "ag": true,
}

// normalizeCompany lowercases a company name, strips punctuation and drops
// trailing legal suffixes: "Stripe, Inc." and "stripe" normalize the same.
func normalizeCompany(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '\t'
	})
	for len(words) > 1 && legalSuffixes[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// resolveCompany returns the tracked company whose normalized name matches
// name, creating one when there is none.
func resolveCompany(tx *gorm.DB, name string) (*models.Company, error) {
	name = strings.TrimSpace(name)
	want := normalizeCompany(name)
	if want == "" {
		return nil, invalid("company name is required")
	}

	var companies []models.Company
	if err := tx.Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}
	for i := range companies {
		if normalizeCompany(companies[i].Name) == want {
			return &companies[i], nil
		}
	}

	// it creates the company if it doesn't exist yet
	var company models.Company
	if err := tx.Where(models.Company{Name: name}).FirstOrCreate(&company).Error; err != nil {
		return nil, fmt.Errorf("failed to create company %q: %w", name, err)
	}
	return &company, nil
}
