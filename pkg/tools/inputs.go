package tools

import (
	"strings"
	"time"
)

// GetLeadByURLInput is the argument set of get_lead_by_url.
type GetLeadByURLInput struct {
	URL              string `json:"url" jsonschema:"LinkedIn profile URL (e.g. https://www.linkedin.com/in/username/)"`
	Comments         bool   `json:"comments,omitempty" jsonschema:"Include comments data"`
	InexactCompany   bool   `json:"inexact_company,omitempty" jsonschema:"Allow inexact company matching"`
	PeopleAlsoViewed bool   `json:"people_also_viewed,omitempty" jsonschema:"Include people also viewed"`
	Posts            bool   `json:"posts,omitempty" jsonschema:"Include posts data"`
	TimeoutMS        *int   `json:"timeout_ms,omitempty" jsonschema:"Request timeout in milliseconds"`
}

// SearchLeadsInput is the argument set of search_leads.
type SearchLeadsInput struct {
	JobTitle    string `json:"job_title,omitempty" jsonschema:"Job title filter (e.g. CEO, CTO, Engineer)"`
	Location    string `json:"location,omitempty" jsonschema:"Location filter (e.g. San Francisco, New York)"`
	Industry    string `json:"industry,omitempty" jsonschema:"Industry filter (e.g. Technology, Healthcare)"`
	CompanyID   string `json:"company_id,omitempty" jsonschema:"LinkedIn company id"`
	CompanyLink string `json:"company_link,omitempty" jsonschema:"LinkedIn company URL"`
	CompanyName string `json:"company_name,omitempty" jsonschema:"Company name"`
	Limit       *int   `json:"limit,omitempty" jsonschema:"Number of results to return"`
	Offset      *int   `json:"offset,omitempty" jsonschema:"Offset for pagination"`
	MaxItems    *int   `json:"max_items,omitempty" jsonschema:"Maximum items to include in response (local trim, at most 50)"`
	Compact     *bool  `json:"compact,omitempty" jsonschema:"Return compact summary instead of full JSON (default true)"`
	TimeoutMS   *int   `json:"timeout_ms,omitempty" jsonschema:"Request timeout in milliseconds"`
}

// SearchCompaniesInput is the argument set of search_companies.
type SearchCompaniesInput struct {
	CompanyTypes      []string `json:"company_types,omitempty" jsonschema:"Company types"`
	GetMaxCompanies   *bool    `json:"get_max_companies,omitempty" jsonschema:"Get maximum companies"`
	Headcounts        []string `json:"headcounts,omitempty" jsonschema:"Headcount ranges"`
	Industries        []string `json:"industries,omitempty" jsonschema:"Industries"`
	Keywords          []string `json:"keywords,omitempty" jsonschema:"Keywords"`
	MaxItems          *int     `json:"max_items,omitempty" jsonschema:"Maximum items to include in response (local trim, at most 50)"`
	Compact           *bool    `json:"compact,omitempty" jsonschema:"Return compact summary instead of full JSON (default true)"`
	FallbackFromLeads *bool    `json:"fallback_from_leads,omitempty" jsonschema:"If no companies match, derive them from leads by keywords (default true)"`
	TimeoutMS         *int     `json:"timeout_ms,omitempty" jsonschema:"Request timeout in milliseconds"`
}

// GenerateEmailInput is the argument set of generate_email.
type GenerateEmailInput struct {
	FirstName string `json:"first_name" jsonschema:"First name of the person"`
	LastName  string `json:"last_name" jsonschema:"Last name of the person"`
	Domain    string `json:"domain" jsonschema:"Company domain without protocol (e.g. generect.com)"`
	TimeoutMS *int   `json:"timeout_ms,omitempty" jsonschema:"Request timeout in milliseconds"`
}

// HealthInput is the argument set of health.
type HealthInput struct {
	URL       string `json:"url,omitempty" jsonschema:"LinkedIn profile URL to validate (defaults to a public profile)"`
	TimeoutMS *int   `json:"timeout_ms,omitempty" jsonschema:"Request timeout in milliseconds"`
}

// Upstream request bodies. Local controls never leave the process.

type leadByLinkQuery struct {
	URL              string `json:"url"`
	Comments         bool   `json:"comments"`
	InexactCompany   bool   `json:"inexact_company"`
	PeopleAlsoViewed bool   `json:"people_also_viewed"`
	Posts            bool   `json:"posts"`
}

type leadsQuery struct {
	JobTitle    string   `json:"job_title,omitempty"`
	Location    string   `json:"location,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	CompanyID   string   `json:"company_id,omitempty"`
	CompanyLink string   `json:"company_link,omitempty"`
	CompanyName string   `json:"company_name,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Limit       *int     `json:"limit,omitempty"`
	Offset      *int     `json:"offset,omitempty"`
}

type companiesQuery struct {
	CompanyTypes    []string `json:"company_types,omitempty"`
	GetMaxCompanies *bool    `json:"get_max_companies,omitempty"`
	Headcounts      []string `json:"headcounts,omitempty"`
	Industries      []string `json:"industries,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

type emailCandidate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Domain    string `json:"domain"`
}

func (in GetLeadByURLInput) query() leadByLinkQuery {
	return leadByLinkQuery{
		URL:              strings.TrimSpace(in.URL),
		Comments:         in.Comments,
		InexactCompany:   in.InexactCompany,
		PeopleAlsoViewed: in.PeopleAlsoViewed,
		Posts:            in.Posts,
	}
}

func (in SearchLeadsInput) query() leadsQuery {
	return leadsQuery{
		JobTitle:    in.JobTitle,
		Location:    in.Location,
		Industry:    in.Industry,
		CompanyID:   in.CompanyID,
		CompanyLink: in.CompanyLink,
		CompanyName: in.CompanyName,
		Limit:       in.Limit,
		Offset:      in.Offset,
	}
}

func (in SearchCompaniesInput) query() companiesQuery {
	return companiesQuery{
		CompanyTypes:    in.CompanyTypes,
		GetMaxCompanies: in.GetMaxCompanies,
		Headcounts:      in.Headcounts,
		Industries:      in.Industries,
		Keywords:        in.Keywords,
	}
}

func (in SearchCompaniesInput) keywords() []string {
	var out []string
	for _, k := range in.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func timeoutOf(ms *int) time.Duration {
	if ms == nil || *ms <= 0 {
		return 0
	}
	return time.Duration(*ms) * time.Millisecond
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}
