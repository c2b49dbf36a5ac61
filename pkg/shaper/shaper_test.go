package shaper

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestCap(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultItems, Cap())
	assert.Equal(t, DefaultItems, Cap(nil, nil))
	assert.Equal(t, 3, Cap(intPtr(3), intPtr(20)))
	assert.Equal(t, 20, Cap(nil, intPtr(20)))
	assert.Equal(t, MaxItems, Cap(intPtr(500)))
	assert.Equal(t, 0, Cap(intPtr(-7)))
	assert.Equal(t, 0, Cap(intPtr(0), intPtr(5)))
}

func TestCompactNeverExceedsCap(t *testing.T) {
	t.Parallel()

	items := make([]any, 120)
	for i := range items {
		items[i] = map[string]any{"full_name": fmt.Sprintf("Lead %d", i)}
	}
	for _, requested := range []int{-5, 0, 1, 10, 49, 50, 51, 1000} {
		got := Compact(items, Cap(intPtr(requested)), LeadItem)
		want := requested
		if want < 0 {
			want = 0
		}
		if want > MaxItems {
			want = MaxItems
		}
		assert.Len(t, got, want, "requested %d", requested)
	}
	assert.Empty(t, Compact(items, -1, LeadItem))
	assert.Len(t, Compact(items[:2], 10, LeadItem), 2)
}

func TestSanitizeLeadFallbacks(t *testing.T) {
	t.Parallel()

	lead := SanitizeLead(map[string]any{
		"unformatted_full_name": "Ada Lovelace",
		"first_name":            "Ada",
		"raw_job_title":         "Analyst",
		"company_name":          nil,
		"raw_company_name":      "Engines Ltd",
		"industry":              "Computing",
		"job_location":          "London",
		"linkedin_url":          "https://www.linkedin.com/in/ada/",
		"email":                 "ignored@example.com",
	})
	assert.Equal(t, "Ada Lovelace", lead.FullName)
	assert.Equal(t, "Ada", lead.FirstName)
	assert.Nil(t, lead.LastName)
	assert.Equal(t, "Analyst", lead.JobTitle)
	assert.Equal(t, "Engines Ltd", lead.CompanyName)
	assert.Equal(t, "Computing", lead.Industry)
	assert.Equal(t, "London", lead.Location)

	raw, err := json.Marshal(lead)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "email")
	assert.Contains(t, string(raw), `"company_id":null`)
}

func TestSanitizeCompanyFallbacks(t *testing.T) {
	t.Parallel()

	company := SanitizeCompany(map[string]any{
		"company_name":            "Acme",
		"company_url":             "https://www.linkedin.com/company/acme/",
		"website":                 "https://acme.test",
		"company_headcount_range": "51-200",
		"company_industry":        "Manufacturing",
		"company_location":        "Berlin",
	})
	assert.Equal(t, Company{
		Name:           "Acme",
		LinkedInURL:    "https://www.linkedin.com/company/acme/",
		Website:        "https://acme.test",
		HeadcountRange: "51-200",
		Industry:       "Manufacturing",
		Location:       "Berlin",
	}, company)
}

func TestCompactPassesDerivedCompaniesThrough(t *testing.T) {
	t.Parallel()

	derived := map[string]any{"name": "Acme Corp", "occurrences_in_leads": 2}
	items := []any{
		derived,
		DerivedCompany{Name: "Acme Inc", OccurrencesInLeads: 1},
		map[string]any{"company_name": "Other", "extra": true},
		"not-an-object",
	}
	got := Compact(items, 10, CompanyItem)
	require.Len(t, got, 4)
	assert.Equal(t, derived, got[0])
	assert.Equal(t, DerivedCompany{Name: "Acme Inc", OccurrencesInLeads: 1}, got[1])
	assert.Equal(t, Company{Name: "Other"}, got[2])
	assert.Equal(t, "not-an-object", got[3])
}

func TestDeriveCompanies(t *testing.T) {
	t.Parallel()

	leads := []any{
		map[string]any{"company_name": "Acme Inc"},
		map[string]any{"company_name": "Acme Corp"},
		map[string]any{"raw_company_name": " Acme Corp "},
		map[string]any{"company_name": "  "},
		"garbage",
	}
	got := DeriveCompanies(leads)
	assert.Equal(t, []DerivedCompany{
		{Name: "Acme Corp", OccurrencesInLeads: 2},
		{Name: "Acme Inc", OccurrencesInLeads: 1},
	}, got)
}

func TestDeriveCompaniesTiesKeepFirstSeenOrder(t *testing.T) {
	t.Parallel()

	leads := []any{
		map[string]any{"company_name": "Zeta"},
		map[string]any{"company_name": "Alpha"},
		map[string]any{"company_name": "Mid"},
		map[string]any{"company_name": "Mid"},
	}
	got := DeriveCompanies(leads)
	assert.Equal(t, []DerivedCompany{
		{Name: "Mid", OccurrencesInLeads: 2},
		{Name: "Zeta", OccurrencesInLeads: 1},
		{Name: "Alpha", OccurrencesInLeads: 1},
	}, got)
	assert.Empty(t, DeriveCompanies(nil))
}

func TestItemsAndAmount(t *testing.T) {
	t.Parallel()

	data := map[string]any{"results": []any{1, 2}, "amount": json.Number("42")}
	assert.Equal(t, []any{1, 2}, Items(data, "leads", "results", "items"))
	assert.Nil(t, Items(data, "companies"))
	assert.Nil(t, Items([]any{1}, "leads"))
	assert.Equal(t, json.Number("42"), Amount(data, 2))
	assert.Equal(t, 2, Amount(map[string]any{}, 2))
}
