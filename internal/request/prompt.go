// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// correctionPromptTmpl is the user prompt sent to the completion API for
// one batch of segments. It lists the segments as JSON tuples and pins
// down the exact response contract; everything downstream depends on the
// model honoring the "find appears verbatim" rule.
var correctionPromptTmpl = template.Must(template.New("correction").Parse(`Below are text segments extracted from an HTML document, one JSON object per line with fields "id", "containerTag", and "text":

{{range .Segments}}{{.}}
{{end}}
{{.Instructions}}

Respond with a JSON array of corrections. Each element must be an object with these fields:
- "id": the integer id of the segment the correction applies to
- "find": the exact text to replace, copied character-for-character from the segment
- "replace": the corrected text
- "reason": a short explanation of the fix
- "changeType": "{{.ChangeType}}"

Rules:
- "find" must appear verbatim in the segment's text.
- Keep each correction minimal. Do not rewrite a sentence when a word will do.
- Never introduce numbers, prices, email addresses, or URLs that are not already in the segment.
- Omit segments that need no correction. An empty array is a valid response.
- Respond with the JSON array only, no markdown fences, no commentary.`))

// feedbackPromptTmpl re-prompts after an unparseable response, appending
// the parse error and the rejected reply as context.
var feedbackPromptTmpl = template.Must(template.New("feedback").Parse(`{{.Base}}

Your previous reply could not be parsed: {{.Error}}

Previous reply:
{{.Raw}}

Respond again with only the JSON array described above.`))

const (
	grammarSystemPrompt = `You are a meticulous copy editor for marketing content. You fix objective errors only: spelling, grammar, punctuation, doubled words. You never change meaning, tone, facts, or formatting.`

	engagementSystemPrompt = `You are a conversion copywriter. You tighten wording, strengthen verbs, and make headings more compelling, while preserving every fact, claim, number, and link exactly as written.`

	grammarInstructions = `Task: proofread the segments. Propose a correction only where there is an objective error. Do not rephrase for style.`

	engagementInstructions = `Task: improve the segments for reader engagement. Favor small, high-impact edits over wholesale rewrites.`
)

// maxRawEcho caps how much of a rejected reply is echoed back in a
// feedback prompt.
const maxRawEcho = 2000

func systemPrompt(task types.Task) string {
	if task == types.TaskEngagement {
		return engagementSystemPrompt
	}
	return grammarSystemPrompt
}

// SystemPrompt returns the system prompt sent with every batch of a
// task.
func SystemPrompt(task types.Task) string {
	return systemPrompt(task)
}

// BatchPrompt renders the user prompt the requester would send for one
// batch. The estimator counts tokens against it without calling a
// backend.
func BatchPrompt(task types.Task, batch []types.TextSegment) (string, error) {
	return renderPrompt(task, batch)
}

// renderPrompt builds the batch correction prompt for one task.
func renderPrompt(task types.Task, batch []types.TextSegment) (string, error) {
	lines := make([]string, 0, len(batch))
	for _, s := range batch {
		tuple, err := json.Marshal(struct {
			ID           int    `json:"id"`
			ContainerTag string `json:"containerTag"`
			Text         string `json:"text"`
		}{s.ID, s.ContainerTag, s.Text})
		if err != nil {
			return "", fmt.Errorf("marshaling segment %d: %w", s.ID, err)
		}
		lines = append(lines, string(tuple))
	}

	instructions := grammarInstructions
	if task == types.TaskEngagement {
		instructions = engagementInstructions
	}

	var buf bytes.Buffer
	err := correctionPromptTmpl.Execute(&buf, struct {
		Segments     []string
		Instructions string
		ChangeType   string
	}{lines, instructions, string(task)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderFeedbackPrompt builds the retry prompt after a parse failure.
func renderFeedbackPrompt(base, raw string, parseErr error) (string, error) {
	if len(raw) > maxRawEcho {
		raw = raw[:maxRawEcho] + "..."
	}
	var buf bytes.Buffer
	err := feedbackPromptTmpl.Execute(&buf, struct {
		Base  string
		Error string
		Raw   string
	}{base, parseErr.Error(), raw})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
