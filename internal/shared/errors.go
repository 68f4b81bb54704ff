package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Fatal pipeline errors: the run aborts when one of these surfaces
	ErrHistoryUnavailable = fmt.Errorf("listening history unavailable")
	ErrAuthDenied         = fmt.Errorf("authorization denied")
	ErrAuthExpired        = fmt.Errorf("access token expired")

	// Non-fatal pipeline errors: recorded per unit, the run continues
	ErrSimilarityLookup = fmt.Errorf("similarity lookup failed")
	ErrSampleFetch      = fmt.Errorf("sample fetch failed")
	ErrAddBatch         = fmt.Errorf("failed to add batch")

	// API and service errors
	ErrRateLimited        = fmt.Errorf("rate limited")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
