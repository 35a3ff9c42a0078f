// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package request

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// wireChange is one change object as the model returns it. Models echo
// the id back under either name and sometimes as a string.
type wireChange struct {
	ID         flexInt `json:"id"`
	SegmentID  flexInt `json:"segmentId"`
	Find       string  `json:"find"`
	Replace    string  `json:"replace"`
	Reason     string  `json:"reason"`
	ChangeType string  `json:"changeType"`
}

// wireEnvelope covers the object-wrapped response shapes.
type wireEnvelope struct {
	Changes     []wireChange `json:"changes"`
	Corrections []wireChange `json:"corrections"`
	Results     []wireChange `json:"results"`
}

// flexInt decodes an id that may arrive as a JSON number, a numeric
// string, or a prefixed string like "seg-12".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		if n, err := num.Int64(); err == nil {
			*f = flexInt(n)
			return nil
		}
		if fl, err := num.Float64(); err == nil {
			*f = flexInt(int(fl))
			return nil
		}
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("id is neither number nor string: %s", data)
	}
	n, ok := numericSuffix(s)
	if !ok {
		return fmt.Errorf("no numeric id in %q", s)
	}
	*f = flexInt(n)
	return nil
}

// numericSuffix returns the trailing run of digits in s as an int.
func numericSuffix(s string) (int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseChanges normalizes one raw model response into ProposedChanges.
// A decode failure is returned to the caller for a feedback retry;
// individually bad items (empty find, id outside the batch) are dropped
// with a warning instead, so one stray item cannot void a batch.
func parseChanges(raw string, batch []types.TextSegment, task types.Task, w io.Writer) ([]types.ProposedChange, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	items, err := decodeItems(text)
	if err != nil {
		return nil, err
	}

	inBatch := make(map[int]bool, len(batch))
	for _, s := range batch {
		inBatch[s.ID] = true
	}

	var changes []types.ProposedChange
	for _, it := range items {
		id := int(it.ID)
		if id == 0 {
			id = int(it.SegmentID)
		}
		if it.Find == "" {
			fmt.Fprintf(w, "warning: dropping change with empty find (segment %d)\n", id)
			continue
		}
		if !inBatch[id] {
			fmt.Fprintf(w, "warning: dropping change for segment %d outside this batch\n", id)
			continue
		}
		changeType := it.ChangeType
		if changeType == "" {
			changeType = string(task)
		}
		changes = append(changes, types.ProposedChange{
			SegmentID:  id,
			Find:       it.Find,
			Replace:    it.Replace,
			Reason:     it.Reason,
			ChangeType: changeType,
		})
	}
	return changes, nil
}

// decodeItems accepts either a bare JSON array or an object wrapping one
// under "changes", "corrections", or "results".
func decodeItems(text string) ([]wireChange, error) {
	var items []wireChange
	if err := json.Unmarshal([]byte(text), &items); err == nil {
		return items, nil
	}

	var env wireEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("response is neither a JSON array nor a wrapper object: %w", err)
	}
	switch {
	case env.Changes != nil:
		return env.Changes, nil
	case env.Corrections != nil:
		return env.Corrections, nil
	case env.Results != nil:
		return env.Results, nil
	}
	return nil, fmt.Errorf("wrapper object has no changes, corrections, or results array")
}

// stripFences removes a markdown code fence the model may wrap its JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
