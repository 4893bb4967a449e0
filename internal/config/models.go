package config

// SourceConfig represents the message source selection
type SourceConfig struct {
	Type string
}

// IMAPConfig represents the configuration for the IMAP source
type IMAPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Mailbox     string
	UseStartTLS bool
}

// EMLConfig represents the configuration for the directory source
type EMLConfig struct {
	Dir string
}

// ClassifierConfig represents the provider-independent classifier settings
type ClassifierConfig struct {
	Provider    string
	AdThreshold float64
	MaxBodySize int
}

// KeywordConfig represents the configuration for the keyword classifier
type KeywordConfig struct {
	MinIndicators   int
	ExtraIndicators []string
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// LedgerConfig represents the configuration for the CSV ledger
type LedgerConfig struct {
	Path  string
	Merge bool
}

// RunStateConfig represents the configuration for run-state tracking
type RunStateConfig struct {
	Enabled bool
	Path    string
}

// StatsConfig represents the configuration for the stats file
type StatsConfig struct {
	Path string
}

// WatchConfig represents the configuration for scheduled repeat runs
type WatchConfig struct {
	Enabled  bool
	Schedule string
}

// WebConfig represents the configuration for the web view
type WebConfig struct {
	ListenAddress string
	TopSenders    int
}

// GetSource returns the message source selection
func (c *Config) GetSource() SourceConfig {
	return SourceConfig{
		Type: c.GetString("source.type"),
	}
}

// GetIMAP returns the IMAP source configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Host:        c.GetString("imap.host"),
		Port:        c.GetInt("imap.port"),
		Username:    c.GetString("imap.username"),
		Password:    c.GetString("imap.password"),
		Mailbox:     c.GetString("imap.mailbox"),
		UseStartTLS: c.GetBool("imap.use_starttls"),
	}
}

// GetEML returns the directory source configuration
func (c *Config) GetEML() EMLConfig {
	return EMLConfig{
		Dir: c.GetString("eml.dir"),
	}
}

// GetClassifier returns the provider-independent classifier settings
func (c *Config) GetClassifier() ClassifierConfig {
	return ClassifierConfig{
		Provider:    c.GetString("classifier.provider"),
		AdThreshold: c.GetFloat64("classifier.ad_threshold"),
		MaxBodySize: c.GetInt("classifier.max_body_size"),
	}
}

// GetKeyword returns the keyword classifier configuration
func (c *Config) GetKeyword() KeywordConfig {
	return KeywordConfig{
		MinIndicators:   c.GetInt("keyword.min_indicators"),
		ExtraIndicators: c.GetStringSlice("keyword.extra_indicators"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetLedger returns the ledger configuration
func (c *Config) GetLedger() LedgerConfig {
	return LedgerConfig{
		Path:  c.GetString("ledger.path"),
		Merge: c.GetBool("ledger.merge"),
	}
}

// GetRunState returns the run-state configuration
func (c *Config) GetRunState() RunStateConfig {
	return RunStateConfig{
		Enabled: c.GetBool("runstate.enabled"),
		Path:    c.GetString("runstate.path"),
	}
}

// GetStats returns the stats file configuration
func (c *Config) GetStats() StatsConfig {
	return StatsConfig{
		Path: c.GetString("stats.path"),
	}
}

// GetWatch returns the watch mode configuration
func (c *Config) GetWatch() WatchConfig {
	return WatchConfig{
		Enabled:  c.GetBool("watch.enabled"),
		Schedule: c.GetString("watch.schedule"),
	}
}

// GetWeb returns the web view configuration
func (c *Config) GetWeb() WebConfig {
	return WebConfig{
		ListenAddress: c.GetString("web.listen_address"),
		TopSenders:    c.GetInt("web.top_senders"),
	}
}
