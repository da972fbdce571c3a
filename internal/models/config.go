package models

// Kind identifies which of the three document kinds a parsed config is.
type Kind string

const (
	KindTemplate Kind = "template"
	KindChunk    Kind = "chunk"
	KindPrompt   Kind = "prompt"
)

// GenerationMode selects how the combination generator walks the
// placeholder space.
type GenerationMode string

const (
	ModeCombinatorial GenerationMode = "combinatorial"
	ModeRandom        GenerationMode = "random"
)

// SeedMode selects how seeds are assigned to generated variations.
type SeedMode string

const (
	SeedFixed       SeedMode = "fixed"
	SeedProgressive SeedMode = "progressive"
	SeedRandom      SeedMode = "random"
)

// GenerationConfig holds the generation section of a prompt document.
// MaxImages 0 is the zero value of an omitted field and behaves exactly
// like -1: the full combinatorial product.
type GenerationConfig struct {
	Mode      GenerationMode `yaml:"mode" json:"mode"`
	SeedMode  SeedMode       `yaml:"seed_mode" json:"seed_mode"`
	Seed      int64          `yaml:"seed" json:"seed"`
	MaxImages int            `yaml:"max_images" json:"max_images"`
}

// OutputConfig holds the output hints of a prompt document. The engine
// validates and carries them; acting on them is the caller's job.
type OutputConfig struct {
	SessionName  string   `yaml:"session_name,omitempty" json:"session_name,omitempty"`
	FilenameKeys []string `yaml:"filename_keys,omitempty" json:"filename_keys,omitempty"`
}

// Document holds the fields shared by all three document kinds. The
// template-string field is deliberately absent: its YAML name differs per
// kind, so each kind struct declares its own.
type Document struct {
	Version        string            `yaml:"version"`
	Name           string            `yaml:"name"`
	Implements     string            `yaml:"implements,omitempty"`
	Imports        ImportSection     `yaml:"imports,omitempty"`
	Chunks         map[string]string `yaml:"chunks,omitempty"`
	Defaults       map[string]string `yaml:"defaults,omitempty"`
	Parameters     map[string]any    `yaml:"parameters,omitempty"`
	NegativePrompt string            `yaml:"negative_prompt,omitempty"`

	// Resolved at load time, never serialized.
	Path string `yaml:"-"` // canonical absolute path of the source file
	Dir  string `yaml:"-"` // directory relative references resolve against
}

// Config is the closed set of parsed document kinds. Template exposes the
// kind-specific template-string field under one accessor.
type Config interface {
	Base() *Document
	DocKind() Kind
	Template() string
	SetTemplate(s string)
}

// TemplateConfig is a base template document. Its template string must
// contain the literal {prompt} injection point.
type TemplateConfig struct {
	Document `yaml:",inline"`
	Text     string `yaml:"template"`
}

func (c *TemplateConfig) Base() *Document      { return &c.Document }
func (c *TemplateConfig) DocKind() Kind        { return KindTemplate }
func (c *TemplateConfig) Template() string     { return c.Text }
func (c *TemplateConfig) SetTemplate(s string) { c.Text = s }

// ChunkConfig is a reusable fragment document. Reserved placeholders are
// forbidden in its template string. Type participates in inheritance
// compatibility checks.
type ChunkConfig struct {
	Document `yaml:",inline"`
	Type     string `yaml:"type,omitempty"`
	Text     string `yaml:"chunk_template"`
}

func (c *ChunkConfig) Base() *Document      { return &c.Document }
func (c *ChunkConfig) DocKind() Kind        { return KindChunk }
func (c *ChunkConfig) Template() string     { return c.Text }
func (c *ChunkConfig) SetTemplate(s string) { c.Text = s }

// PromptConfig is a concrete entry-point document.
type PromptConfig struct {
	Document   `yaml:",inline"`
	Text       string            `yaml:"prompt_template"`
	Generation *GenerationConfig `yaml:"generation,omitempty"`
	Output     *OutputConfig     `yaml:"output,omitempty"`
}

func (c *PromptConfig) Base() *Document      { return &c.Document }
func (c *PromptConfig) DocKind() Kind        { return KindPrompt }
func (c *PromptConfig) Template() string     { return c.Text }
func (c *PromptConfig) SetTemplate(s string) { c.Text = s }

// GenerationOrDefault returns the document's generation section, or a full
// combinatorial run with a progressive seed when the section is absent.
func (c *PromptConfig) GenerationOrDefault() GenerationConfig {
	if c.Generation != nil {
		return *c.Generation
	}
	return GenerationConfig{
		Mode:      ModeCombinatorial,
		SeedMode:  SeedProgressive,
		Seed:      1,
		MaxImages: -1,
	}
}
