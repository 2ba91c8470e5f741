package match

import (
	"sort"

	"github.com/skillweave/skillweave/store"
)

const rrfK = 60 // RRF constant (standard value from literature)

// FusedInfo holds per-result method contribution metadata.
type FusedInfo struct {
	Methods []string `json:"methods"`
	VecRank int      `json:"vec_rank,omitempty"` // 1-based, 0 = not present
	FTSRank int      `json:"fts_rank,omitempty"` // 1-based, 0 = not present
}

// fuseRRF implements Reciprocal Rank Fusion to combine results from the
// vector and FTS legs. Each result set is ranked independently, then
// scores are combined using: score = sum(weight_i / (k + rank_i)).
// It also returns per-result method contribution info keyed by occupation ID.
func fuseRRF(
	vecResults, ftsResults []store.SearchResult,
	weightVec, weightFTS float64,
	maxResults int,
) ([]store.SearchResult, map[int64]FusedInfo) {
	type fusedEntry struct {
		result store.SearchResult
		score  float64
		info   FusedInfo
	}

	fused := make(map[int64]*fusedEntry)

	// Add vector results with their RRF scores
	for rank, r := range vecResults {
		entry, ok := fused[r.OccupationID]
		if !ok {
			entry = &fusedEntry{result: r}
			fused[r.OccupationID] = entry
		}
		entry.score += weightVec / float64(rrfK+rank+1)
		entry.info.Methods = append(entry.info.Methods, "vector")
		entry.info.VecRank = rank + 1
	}

	// Add FTS results
	for rank, r := range ftsResults {
		entry, ok := fused[r.OccupationID]
		if !ok {
			entry = &fusedEntry{result: r}
			fused[r.OccupationID] = entry
		}
		entry.score += weightFTS / float64(rrfK+rank+1)
		entry.info.Methods = append(entry.info.Methods, "fts")
		entry.info.FTSRank = rank + 1
	}

	// Sort by fused score
	entries := make([]*fusedEntry, 0, len(fused))
	for _, e := range fused {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})

	// Limit results
	if maxResults > 0 && len(entries) > maxResults {
		entries = entries[:maxResults]
	}

	results := make([]store.SearchResult, len(entries))
	infoMap := make(map[int64]FusedInfo, len(entries))
	for i, e := range entries {
		results[i] = e.result
		results[i].Score = e.score
		infoMap[e.result.OccupationID] = e.info
	}

	return results, infoMap
}

// normalizeConfidence maps a fused RRF score into 0..1 against the
// theoretical maximum, which a result hits by ranking first in every leg.
func normalizeConfidence(score, weightVec, weightFTS float64) float64 {
	best := (weightVec + weightFTS) / float64(rrfK+1)
	if best <= 0 {
		return 0
	}
	c := score / best
	if c > 1 {
		c = 1
	}
	return c
}
