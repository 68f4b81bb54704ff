// Package services contains HTTP clients for the two external services the
// pipeline chains together.
//
// [LastFMService] implements [History]: read-only listening-history lookups
// (top albums, similar artists, album track listings). [SpotifyService]
// implements [Catalog]: track search, playlist creation, and batched track
// addition against the destination catalog.
//
// Both clients pace their requests with a [rate.Limiter] and retry transient
// failures; the Spotify client additionally honors Retry-After hints on 429
// responses. Neither client owns credentials: Spotify calls pull a fresh
// access token from a [TokenProvider] before every request.
package services
