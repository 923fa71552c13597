package digest

import (
	"encoding/json"
	"fmt"

	"notedigest/internal/pipeline"
)

// digestPrompt embeds the notes and URL projections in a single prompt and
// pins the output to the Digest JSON shape.
func digestPrompt(notes, urls []pipeline.NoteResult) string {
	notesJSON, _ := json.MarshalIndent(notes, "", "  ")
	urlsJSON, _ := json.MarshalIndent(urls, "", "  ")
	return fmt.Sprintf(`You will be given summaries of notes written or edited today, and summaries of articles the author read today. Synthesize them into a single daily digest.

<note_summaries>
%s
</note_summaries>
<url_summaries>
%s
</url_summaries>

Respond with exactly one JSON object of this shape and nothing else:
{
  "overallSummary": string,
  "interestingIdeas": string[],
  "commonThemes": string[],
  "questionsForExploration": string[],
  "nextSteps": string[]
}

- overallSummary: a few sentences capturing the day's thinking as a whole
- interestingIdeas: the most notable individual ideas across all material
- commonThemes: threads that recur across multiple notes or articles
- questionsForExploration: open questions worth digging into next
- nextSteps: concrete actions suggested by the material`, notesJSON, urlsJSON)
}
