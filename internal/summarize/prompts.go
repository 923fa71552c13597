package summarize

import "fmt"

// notePrompt asks for a detailed bullet-point summary of a full note body.
// The format contract (## headings, hyphen bullets, two-space nesting) is
// what the digest renderer expects back out of the notes bucket.
func notePrompt(filename, content string) string {
	return fmt.Sprintf(`Analyze the following note content thoroughly and create a detailed summary in bullet point format:

<note_filename>
%s
</note_filename>
<note_content>
%s
</note_content>

Your summary should:
- Capture all significant information, ideas, and concepts mentioned in the note
- Maintain the original context and intent of the information
- Be comprehensive enough that it could be used to reconstruct the main points of the original note
- Include specific details, names, dates, and figures where relevant
- Preserve any chronological or logical order present in the original note

Use this exact formatting consistently throughout your summary:
- Main points: Use ## (second-level headers)
- Subpoints: Use - (hyphens)
- Further nested points: Indent with 2 spaces, then use -
- Do not use any other symbols for bullet points

Important: Provide only the detailed bullet-point summary using the markdown formatting specified above. Do not include any additional text, explanations, or formatting outside of the summary.`, filename, content)
}

// diffPrompt asks for a bullet-point summary of a unified patch, tagging
// additions, removals, and unchanged context.
func diffPrompt(patch string) string {
	return fmt.Sprintf(`Analyze the following diff content thoroughly and create a detailed summary of the changes:

<diff_content>
%s
</diff_content>

Your summary should:
- Capture all changes, additions, and deletions in the diff
- Describe any significant unchanged content for context
- Be comprehensive enough to understand the nature and impact of the modifications
- Preserve the order of changes as they appear in the diff

Use this exact formatting consistently throughout your summary:
- Main points (file changes or major sections): Use ## (second-level headers)
- Additions: Use - (hyphens) and prefix with "[ADDED]"
- Deletions: Use - (hyphens) and prefix with "[REMOVED]"
- Unchanged content or context: Use - (hyphens) and prefix with "[UNCHANGED]"
- Comments on changes: Indent with 2 spaces, then use - (hyphens)

Important: Provide only the detailed bullet-point summary of the diff using the markdown formatting specified above. Do not include any additional text, explanations, or formatting outside of the summary.`, patch)
}

// urlPrompt asks for a concise summary of a fetched page.
func urlPrompt(url, title, text string) string {
	return fmt.Sprintf(`Summarize the following web page in a short paragraph followed by bullet points of its key ideas. Focus on the substantive content; ignore navigation, ads, and boilerplate.

<page_url>
%s
</page_url>
<page_title>
%s
</page_title>
<page_content>
%s
</page_content>

Important: Provide only the summary. Do not include any additional text or explanations.`, url, title, text)
}
