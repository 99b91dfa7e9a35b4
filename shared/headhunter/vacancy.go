package headhunter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// PublishedAtLayout is the timestamp format used by the API, e.g. 2026-01-07T11:56:31+0300
const PublishedAtLayout = "2006-01-02T15:04:05-0700"

type IDName struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

type Salary struct {
	From     *int   `json:"from" mapstructure:"from"`
	To       *int   `json:"to" mapstructure:"to"`
	Currency string `json:"currency" mapstructure:"currency"`
	Gross    *bool  `json:"gross" mapstructure:"gross"`
}

// Vacancy is the detail view returned by /vacancies/{id}
type Vacancy struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description"`
	Salary            *Salary `json:"salary"`
	Experience        *IDName `json:"experience"`
	Area              *IDName `json:"area"`
	Schedule          *IDName `json:"schedule"`
	Employment        *IDName `json:"employment"`
	Employer          *IDName `json:"employer"`
	AlternateURL      string  `json:"alternate_url"`
	ApplyAlternateURL string  `json:"apply_alternate_url"`
	Archived          bool    `json:"archived"`
	PublishedAt       string  `json:"published_at"`

	// Raw is the unmodified response body
	Raw json.RawMessage `json:"-"`
}

// ExperienceID returns the experience tier id, empty when missing
func (v *Vacancy) ExperienceID() string {
	if v.Experience == nil {
		return ""
	}
	return v.Experience.ID
}

// Published parses PublishedAt; ok is false when it is missing or malformed
func (v *Vacancy) Published() (time.Time, bool) {
	if v.PublishedAt == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(PublishedAtLayout, v.PublishedAt)
	if err != nil {
		ts, err = time.Parse(time.RFC3339, v.PublishedAt)
		if err != nil {
			return time.Time{}, false
		}
	}
	return ts.UTC(), true
}

// GetVacancy fetches the full vacancy, ErrNotFound for unknown ids
func (c *Client) GetVacancy(ctx context.Context, id string) (*Vacancy, error) {
	body, err := c.get(ctx, "/vacancies/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get vacancy %s: %w", id, err)
	}

	var v Vacancy
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("failed to decode vacancy %s: %w", id, err)
	}
	v.Raw = body

	return &v, nil
}
