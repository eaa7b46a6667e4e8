package common

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration. It is loaded once at
// startup and passed by value into each component's constructor; nothing
// reads configuration from ambient state.
type Config struct {
	Knowledge KnowledgeConfig `toml:"knowledge"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Scoring   ScoringConfig   `toml:"scoring"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Citation  CitationConfig  `toml:"citation"`
	Indexing  IndexingConfig  `toml:"indexing"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	LLM       LLMConfig       `toml:"llm"`
	Gemini    GeminiConfig    `toml:"gemini"`
	Claude    ClaudeConfig    `toml:"claude"`
}

// KnowledgeConfig locates the source PDFs.
type KnowledgeConfig struct {
	Dir        string   `toml:"dir" validate:"required"`
	Extensions []string `toml:"extensions"` // file extensions to index (default: [".pdf"])
}

// ChunkingConfig controls the segmenter. Overlap must be strictly smaller
// than Size; Lookahead bounds the boundary-nudging search.
type ChunkingConfig struct {
	Size      int `toml:"size" validate:"min=100"`     // target chunk size in runes
	Overlap   int `toml:"overlap" validate:"min=0"`    // shared span between consecutive chunks
	Lookahead int `toml:"lookahead" validate:"min=0"`  // boundary adjustment budget in runes
}

// ScoringConfig holds the quality-score factor weights. Each factor is in
// [0,1]; the score is their weighted average, so any non-negative weights
// work: they are normalized by their sum.
type ScoringConfig struct {
	LengthWeight    float64 `toml:"length_weight" validate:"min=0"`
	FragmentWeight  float64 `toml:"fragment_weight" validate:"min=0"`
	StructureWeight float64 `toml:"structure_weight" validate:"min=0"`
	KeyTermWeight   float64 `toml:"key_term_weight" validate:"min=0"`
}

// RetrievalConfig controls query-time context assembly.
type RetrievalConfig struct {
	K int `toml:"k" validate:"min=1"` // chunks retrieved per question
}

// CitationConfig controls marker handling in the reconstructed answer.
type CitationConfig struct {
	// MarkerMode is "excise" (markers removed from the visible answer) or
	// "retain" (markers kept verbatim).
	MarkerMode string `toml:"marker_mode" validate:"oneof=excise retain"`
}

// IndexingConfig controls the indexing pipeline run.
type IndexingConfig struct {
	Concurrency int    `toml:"concurrency" validate:"min=1"` // documents indexed in parallel
	Schedule    string `toml:"schedule"`                     // optional cron schedule for serve mode
}

// StorageConfig wraps the persistence layer settings.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration.
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // delete database on startup
}

// LoggingConfig controls the arbor logger.
type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// LLMConfig selects the provider and the embedding model.
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" validate:"oneof=gemini claude"`
	EmbedModel      string `toml:"embed_model"`
	EmbedDimension  int    `toml:"embed_dimension" validate:"min=1"`
}

// GeminiConfig contains Google Gemini API configuration.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`    // duration string (default: "5m")
	RateLimit   string  `toml:"rate_limit"` // minimum interval between calls (default: "4s")
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   string  `toml:"rate_limit"`
	Temperature float32 `toml:"temperature"`
}

// NewDefaultConfig creates a configuration with default values. The
// chunking defaults (1500/400) match the sizes the legal corpus was tuned
// on: a high overlap keeps enumeration context across cuts.
func NewDefaultConfig() *Config {
	return &Config{
		Knowledge: KnowledgeConfig{
			Dir:        "./knowledge",
			Extensions: []string{".pdf"},
		},
		Chunking: ChunkingConfig{
			Size:      1500,
			Overlap:   400,
			Lookahead: 120,
		},
		Scoring: ScoringConfig{
			LengthWeight:    0.30,
			FragmentWeight:  0.35,
			StructureWeight: 0.20,
			KeyTermWeight:   0.15,
		},
		Retrieval: RetrievalConfig{
			K: 5,
		},
		Citation: CitationConfig{
			MarkerMode: "excise",
		},
		Indexing: IndexingConfig{
			Concurrency: 4,
			Schedule:    "", // disabled unless set
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			EmbedModel:      "gemini-embedding-001",
			EmbedDimension:  768,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			Timeout:     "5m",
			RateLimit:   "4s",
			Temperature: 0.1,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			RateLimit:   "1s",
			Temperature: 0.1,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks field constraints plus the cross-field chunking invariant
// (overlap strictly smaller than size).
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("invalid configuration: chunking overlap (%d) must be smaller than chunk size (%d)", c.Chunking.Overlap, c.Chunking.Size)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if dir := os.Getenv("LEXIS_KNOWLEDGE_DIR"); dir != "" {
		config.Knowledge.Dir = dir
	}
	if size := os.Getenv("LEXIS_CHUNK_SIZE"); size != "" {
		if s, err := strconv.Atoi(size); err == nil {
			config.Chunking.Size = s
		}
	}
	if overlap := os.Getenv("LEXIS_CHUNK_OVERLAP"); overlap != "" {
		if o, err := strconv.Atoi(overlap); err == nil {
			config.Chunking.Overlap = o
		}
	}
	if k := os.Getenv("LEXIS_RETRIEVAL_K"); k != "" {
		if kv, err := strconv.Atoi(k); err == nil {
			config.Retrieval.K = kv
		}
	}
	if mode := os.Getenv("LEXIS_CITATION_MARKER_MODE"); mode != "" {
		config.Citation.MarkerMode = mode
	}
	if path := os.Getenv("LEXIS_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("LEXIS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if provider := os.Getenv("LEXIS_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}
	if model := os.Getenv("LEXIS_EMBED_MODEL"); model != "" {
		config.LLM.EmbedModel = model
	}
	if dim := os.Getenv("LEXIS_EMBED_DIMENSION"); dim != "" {
		if d, err := strconv.Atoi(dim); err == nil {
			config.LLM.EmbedDimension = d
		}
	}
	if apiKey := os.Getenv("LEXIS_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("LEXIS_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	// Claude: the standard ANTHROPIC_API_KEY works, LEXIS_ prefix wins.
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("LEXIS_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if model := os.Getenv("LEXIS_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if schedule := os.Getenv("LEXIS_INDEXING_SCHEDULE"); schedule != "" {
		config.Indexing.Schedule = schedule
	}
	if concurrency := os.Getenv("LEXIS_INDEXING_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Indexing.Concurrency = c
		}
	}
}
