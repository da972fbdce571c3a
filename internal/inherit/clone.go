package inherit

import "github.com/promptweaver/promptweaver/internal/models"

// clone deep-copies a config so cached merge results never leak mutable
// state to callers. Import sources are shared: they are read-only after
// classification.
func clone(cfg models.Config) models.Config {
	switch c := cfg.(type) {
	case *models.TemplateConfig:
		out := *c
		out.Document = cloneDocument(c.Document)
		return &out
	case *models.ChunkConfig:
		out := *c
		out.Document = cloneDocument(c.Document)
		return &out
	case *models.PromptConfig:
		out := *c
		out.Document = cloneDocument(c.Document)
		out.Generation = cloneGeneration(c.Generation)
		out.Output = cloneOutput(c.Output)
		return &out
	}
	return cfg
}

func cloneDocument(d models.Document) models.Document {
	out := d
	out.Chunks = copyStringMap(d.Chunks)
	out.Defaults = copyStringMap(d.Defaults)
	out.Parameters = copyAnyMap(d.Parameters)
	if d.Imports.Entries != nil {
		entries := make([]models.ImportEntry, len(d.Imports.Entries))
		copy(entries, d.Imports.Entries)
		out.Imports = models.ImportSection{Entries: entries}
	}
	return out
}

func cloneGeneration(g *models.GenerationConfig) *models.GenerationConfig {
	if g == nil {
		return nil
	}
	out := *g
	return &out
}

func cloneOutput(o *models.OutputConfig) *models.OutputConfig {
	if o == nil {
		return nil
	}
	out := *o
	if o.FilenameKeys != nil {
		out.FilenameKeys = make([]string, len(o.FilenameKeys))
		copy(out.FilenameKeys, o.FilenameKeys)
	}
	return &out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
