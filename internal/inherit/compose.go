package inherit

import "strings"

// Injection points substituted during composition. {prompt} is filled
// while merging a prompt against its template ancestor; the other two are
// filled once the negative prompt has finished merging.
const (
	promptMarker    = "{prompt}"
	negPromptMarker = "{negprompt}"
	lorasMarker     = "{loras}"
)

func injectPrompt(frame, childText string) string {
	if frame == "" {
		return childText
	}
	return strings.ReplaceAll(frame, promptMarker, childText)
}

// FinishComposition substitutes the remaining reserved injection points
// of a fully merged template string. Lora tag injection lives outside
// this engine, so {loras} resolves to empty text here.
func FinishComposition(text, negativePrompt string) string {
	text = strings.ReplaceAll(text, negPromptMarker, negativePrompt)
	text = strings.ReplaceAll(text, lorasMarker, "")
	return text
}
