// Package shaper trims and sanitizes upstream payloads into the bounded,
// stable shapes returned to tool callers.
package shaper

import (
	"sort"
	"strings"
)

// MaxItems bounds every compacted collection.
const MaxItems = 50

// DefaultItems is used when a caller gives neither max_items nor limit.
const DefaultItems = 10

// Lead is the sanitized view of one upstream lead record.
type Lead struct {
	FullName    any `json:"full_name"`
	FirstName   any `json:"first_name"`
	LastName    any `json:"last_name"`
	JobTitle    any `json:"job_title"`
	CompanyName any `json:"company_name"`
	CompanyID   any `json:"company_id"`
	Industry    any `json:"industry"`
	Location    any `json:"location"`
	LinkedInURL any `json:"linkedin_url"`
}

// Company is the sanitized view of one upstream company record.
type Company struct {
	Name           any `json:"name"`
	LinkedInURL    any `json:"linkedin_url"`
	Website        any `json:"website"`
	HeadcountRange any `json:"headcount_range"`
	Industry       any `json:"industry"`
	Location       any `json:"location"`
}

// DerivedCompany is a company synthesized from lead results.
type DerivedCompany struct {
	Name               string `json:"name"`
	OccurrencesInLeads int    `json:"occurrences_in_leads"`
}

// SanitizeLead keeps the stable subset of a lead, preferring normalized
// upstream fields over their raw counterparts.
func SanitizeLead(item map[string]any) Lead {
	return Lead{
		FullName:    first(item, "full_name", "unformatted_full_name"),
		FirstName:   first(item, "first_name"),
		LastName:    first(item, "last_name"),
		JobTitle:    first(item, "job_title", "raw_job_title"),
		CompanyName: first(item, "company_name", "raw_company_name"),
		CompanyID:   first(item, "company_id"),
		Industry:    first(item, "company_industry", "industry"),
		Location:    first(item, "location", "job_location"),
		LinkedInURL: first(item, "linkedin_url"),
	}
}

// SanitizeCompany keeps the stable subset of a company record.
func SanitizeCompany(item map[string]any) Company {
	return Company{
		Name:           first(item, "name", "company_name"),
		LinkedInURL:    first(item, "linkedin_url", "company_url"),
		Website:        first(item, "website", "company_website"),
		HeadcountRange: first(item, "headcount_range", "company_headcount_range"),
		Industry:       first(item, "industry", "company_industry"),
		Location:       first(item, "location", "company_location"),
	}
}

// Cap resolves the effective item cap from the first non-nil candidate,
// falling back to DefaultItems, and clamps it to [0, MaxItems].
func Cap(candidates ...*int) int {
	n := DefaultItems
	for _, c := range candidates {
		if c != nil {
			n = *c
			break
		}
	}
	if n < 0 {
		return 0
	}
	if n > MaxItems {
		return MaxItems
	}
	return n
}

// Compact truncates items to limit entries and sanitizes each object with
// sanitize. Derived companies pass through untouched. Non-object items are
// kept as they are.
func Compact(items []any, limit int, sanitize func(map[string]any) any) []any {
	if limit < 0 {
		limit = 0
	}
	if limit > len(items) {
		limit = len(items)
	}
	out := make([]any, 0, limit)
	for _, item := range items[:limit] {
		switch v := item.(type) {
		case DerivedCompany:
			out = append(out, v)
		case map[string]any:
			if isDerived(v) {
				out = append(out, v)
				continue
			}
			out = append(out, sanitize(v))
		default:
			out = append(out, v)
		}
	}
	return out
}

// Items returns the first array found in data under one of keys.
func Items(data any, keys ...string) []any {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range keys {
		if list, ok := obj[key].([]any); ok {
			return list
		}
	}
	return nil
}

// Amount reports the upstream "amount" field when present, else fallback.
func Amount(data any, fallback int) any {
	if obj, ok := data.(map[string]any); ok {
		if v, ok := obj["amount"]; ok && v != nil {
			return v
		}
	}
	return fallback
}

// DeriveCompanies counts how often each company name appears across leads.
// The result is ordered by count, highest first, with ties kept in the order
// the names were first seen.
func DeriveCompanies(leads []any) []DerivedCompany {
	counts := make(map[string]int)
	var order []string
	for _, item := range leads {
		lead, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := companyName(lead)
		if name == "" {
			continue
		}
		if _, seen := counts[name]; !seen {
			order = append(order, name)
		}
		counts[name]++
	}
	out := make([]DerivedCompany, 0, len(order))
	for _, name := range order {
		out = append(out, DerivedCompany{Name: name, OccurrencesInLeads: counts[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurrencesInLeads > out[j].OccurrencesInLeads
	})
	return out
}

func companyName(lead map[string]any) string {
	for _, key := range []string{"company_name", "raw_company_name"} {
		if s, ok := lead[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func isDerived(item map[string]any) bool {
	_, hasName := item["name"]
	_, hasCount := item["occurrences_in_leads"]
	return hasName && hasCount
}

// first returns the first present, non-null value among keys.
func first(item map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := item[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// LeadItem adapts SanitizeLead for Compact.
func LeadItem(item map[string]any) any { return SanitizeLead(item) }

// CompanyItem adapts SanitizeCompany for Compact.
func CompanyItem(item map[string]any) any { return SanitizeCompany(item) }
