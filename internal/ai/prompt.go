package ai

import (
	"strings"

	"github.com/dgallion1/mindgest/internal/document"
)

const summaryPrompt = `You are a document analyst. Write a detailed summary (roughly 800-1200 words) of the document below, using this structure:

**Core theme**: background, goals, significance and scope.
**Key arguments**: the main points, each with its supporting evidence.
**Key insights**: the most valuable non-obvious ideas.
**Practical value**: how different readers can apply the material.
**Conclusions**: the overall takeaway and recommended actions.

Write in the language of the document.`

const keyPointsPrompt = `Extract the 5-10 most important points from the document below.

Output one point per line in this form:
- <point> - <why it matters or how to apply it>

Do not add a title, preamble or closing remarks.`

const outlinePrompt = `Build a hierarchical outline of the document below.

Return ONLY a JSON array. Each element must have:
- "id": unique string
- "title": section title
- "level": integer, 1 for top-level sections
- "content": one-sentence overview of the section
- "children": optional array of nested elements with the same fields

Example:
[{"id":"1","title":"Introduction","level":1,"content":"Why the topic matters","children":[]}]`

const mindMapPrompt = `Build a mind map of the document below.

Return ONLY a JSON object. The root has 3-5 main branches, each with 2-4 concrete sub-points taken from the text. Every node has "id" and "label"; non-leaf nodes have "children".

Example:
{"id":"root","label":"Main topic","children":[{"id":"b1","label":"Branch","children":[{"id":"b1_1","label":"Point"}]}]}`

var taskPrompts = map[document.Task]string{
	document.TaskSummary:   summaryPrompt,
	document.TaskKeyPoints: keyPointsPrompt,
	document.TaskOutline:   outlinePrompt,
	document.TaskMindMap:   mindMapPrompt,
}

// BuildPrompt wraps content in the instructions for task. Content is passed
// through the basic sanitiser first.
func BuildPrompt(task document.Task, content string, s *Sanitizer) string {
	instr, ok := taskPrompts[task]
	if !ok {
		instr = summaryPrompt
	}
	var sb strings.Builder
	sb.WriteString(instr)
	sb.WriteString("\n\n---\nDocument:\n")
	sb.WriteString(s.Basic(content))
	return sb.String()
}

// SynthesisContent is the content of the final summary request for a long
// document: the ordered partial summaries plus the merge instruction.
func SynthesisContent(partials []string) string {
	var sb strings.Builder
	sb.WriteString("The following are summaries of consecutive parts of one long document. ")
	sb.WriteString("Combine the partial summaries into one complete long summary, ")
	sb.WriteString("keeping the structure and removing repetition.\n\n")
	sb.WriteString(strings.Join(partials, "\n\n"))
	return sb.String()
}
