/*

ToJSON helpers for the three folds whose output is meant for snapshot
testing. Uses json-iterator's encoding/json-compatible,
allocation-lighter codec rather than stdlib encoding/json; a 30-minute
demo produces on the order of 10^5 entity updates, so the serialisation
surface sits on a hot path for batch runs.

*/

package analyser

import jsoniter "github.com/json-iterator/go"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ToJSON renders a MatchState as stable, indented JSON.
func (s MatchState) ToJSON() ([]byte, error) {
	return jsonAPI.MarshalIndent(s, "", "  ")
}

// ToJSON renders a GameState as stable, indented JSON.
func (s GameState) ToJSON() ([]byte, error) {
	return jsonAPI.MarshalIndent(s, "", "  ")
}

// PlayerSummariesToJSON renders a player-summary map as stable, indented JSON, sorted by
// UserID (map iteration order is otherwise unspecified, which would make
// snapshot tests flaky).
func PlayerSummariesToJSON(summaries map[UserID]*PlayerSummary) ([]byte, error) {
	ids := make([]UserID, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	ordered := make([]*PlayerSummary, len(ids))
	for i, id := range ids {
		ordered[i] = summaries[id]
	}
	return jsonAPI.MarshalIndent(ordered, "", "  ")
}
