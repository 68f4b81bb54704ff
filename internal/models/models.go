package models

import (
	"time"
)

// Artist represents a musical artist from either service.
//
// The history service exposes no stable artist ID to this pipeline, so artist
// identity is case-normalized name equality (see shared.NormalizeName).
type Artist struct {
	Name string
}

// Candidate is an artist discovered via similarity expansion from a seed.
type Candidate struct {
	Artist Artist
	Seed   Artist // the seed artist that produced this candidate
}

// SampledTrack is a track drawn from a candidate artist's catalog.
// It carries no destination identifier yet.
type SampledTrack struct {
	Artist Artist
	Title  string
}

// MatchConfidence classifies how a sampled track was matched against the
// destination catalog.
type MatchConfidence int

const (
	MatchExact MatchConfidence = iota
	MatchFuzzy
)

func (m MatchConfidence) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchFuzzy:
		return "fuzzy"
	default:
		return ""
	}
}

// ResolvedTrack pairs a sampled track with its destination catalog identifier.
type ResolvedTrack struct {
	Sampled       SampledTrack
	DestinationID string
	Confidence    MatchConfidence
}

// Playlist represents a destination playlist.
type Playlist struct {
	ID          string
	Name        string
	Description string
	Public      bool
	URL         string // shareable external URL
}

// FailureStage identifies the pipeline stage a non-fatal failure occurred in.
type FailureStage int

const (
	StageExpand FailureStage = iota
	StageSample
	StageResolve
	StageAdd
)

func (s FailureStage) String() string {
	switch s {
	case StageExpand:
		return "expand"
	case StageSample:
		return "sample"
	case StageResolve:
		return "resolve"
	case StageAdd:
		return "add"
	default:
		return ""
	}
}

// Failure records a non-fatal, per-unit failure captured during a run.
type Failure struct {
	Stage   FailureStage
	Subject string // artist or "artist - title" the failure applies to
	Reason  string
}

// RunSummary is the immutable accounting record assembled at the end of a run.
//
// Conservation invariant: Sampled = Unmatched + Added + AddFailed + Duplicates.
type RunSummary struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Seeds       int
	Candidates  int
	Sampled     int
	Matched     int // Exact + Fuzzy resolutions
	Unmatched   int
	Added       int
	AddFailed   int
	Duplicates  int // resolved IDs filtered by the within-run ledger
	PlaylistID  string
	PlaylistURL string
	Failures    []Failure
}
