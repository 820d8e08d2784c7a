// Package deeplink builds and parses the URIs that connect slices to the
// full activity experience in the app.
package deeplink

import (
	"fmt"
	"net/url"

	"github.com/kevicsalazar/appactions-kotlin/internal/domain"
)

// BaseURL is the https app-link host handled by the mobile clients.
const BaseURL = "https://fit.example.com"

// QueryParamType carries the activity-type filter on slice and view-all URIs.
const QueryParamType = "activityType"

// QueryParamUser identifies the record owner on slice URIs.
const QueryParamUser = "userId"

// Target is a parsed slice URI.
type Target struct {
	Raw    string
	UserID string
	Filter domain.ActivityType
}

// ParseTarget extracts the owner and activity-type filter from a slice URI.
// Missing or unrecognised filter values degrade to the unknown type.
func ParseTarget(raw string) (Target, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("invalid slice target: %w", err)
	}

	query := parsed.Query()
	return Target{
		Raw:    raw,
		UserID: query.Get(QueryParamUser),
		Filter: domain.ParseActivityType(query.Get(QueryParamType)),
	}, nil
}

// SliceURI builds the canonical slice target for a user and filter.
func SliceURI(userID string, filter domain.ActivityType) string {
	values := url.Values{}
	values.Set(QueryParamUser, userID)
	values.Set(QueryParamType, string(filter))
	return fmt.Sprintf("%s/slices/activities?%s", BaseURL, values.Encode())
}

// ViewAll builds the primary-action URI pointing at the full activity list
// for the given filter.
func ViewAll(filter domain.ActivityType) string {
	values := url.Values{}
	values.Set(QueryParamType, string(filter))
	return fmt.Sprintf("%s/activities?%s", BaseURL, values.Encode())
}
