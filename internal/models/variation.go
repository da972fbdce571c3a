package models

// ResolvedContext is the per-run bag a template resolves against. It is
// owned by exactly one pipeline run and never shared.
type ResolvedContext struct {
	// Imports maps placeholder names to resolved candidate sets or nested
	// groups, in declaration order.
	Imports []ResolvedEntry

	// Chunks maps chunk names to their inheritance-merged configs.
	Chunks map[string]*ChunkConfig

	// Defaults are document-level fallback texts consulted between chunk
	// locals and imports.
	Defaults map[string]string

	// Parameters is the merged generation parameter set, copied verbatim
	// onto every variation.
	Parameters map[string]any
}

// LookupImport resolves a dotted placeholder path against the imports.
func (c *ResolvedContext) LookupImport(path []string) (*CandidateSet, bool) {
	if len(path) == 0 {
		return nil, false
	}
	for _, e := range c.Imports {
		if e.Name == path[0] {
			return e.Value.Lookup(path[1:])
		}
	}
	return nil, false
}

// ImportNames returns the top-level import names in declaration order.
func (c *ResolvedContext) ImportNames() []string {
	names := make([]string, len(c.Imports))
	for i, e := range c.Imports {
		names[i] = e.Name
	}
	return names
}

// ResolvedVariation is one fully-substituted output unit, ready to be
// turned into a generation request by the caller.
type ResolvedVariation struct {
	Index               int               `json:"index"` // 1-based, in output order
	FinalPrompt         string            `json:"final_prompt"`
	FinalNegativePrompt string            `json:"final_negative_prompt,omitempty"`
	Seed                int64             `json:"seed"`
	Choices             map[string]string `json:"choices"` // placeholder -> chosen candidate key
	Parameters          map[string]any    `json:"parameters,omitempty"`
}
