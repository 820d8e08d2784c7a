package auth

// Known OAuth scopes used by the slice service.
const (
	ScopeSlicesRead      = "slices:read"
	ScopeActivitiesRead  = "activities:read"
	ScopeActivitiesWrite = "activities:write"
)
