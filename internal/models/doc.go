// Package models defines domain entities for the freshwax discovery pipeline.
//
// Entities follow the pipeline's dataflow:
//
//   - [Artist] : seed artists derived from listening history
//   - [Candidate] : artists discovered via similarity expansion
//   - [SampledTrack] : tracks drawn from a candidate's catalog
//   - [ResolvedTrack] : sampled tracks matched to a destination catalog ID
//   - [Playlist] : the destination playlist created for a run
//   - [RunSummary] : end-of-run accounting (counts plus non-fatal [Failure]s)
//
// All entities are created, used, and discarded within a single run; nothing
// except the persisted [RunSummary] audit record survives across invocations.
package models
