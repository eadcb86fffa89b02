package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-large"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "ATSUMERU_API_KEY"
	}
	if cfg.Retry.Policy == "" {
		cfg.Retry.Policy = "exponential"
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry.Attempts = 3
	}
	if cfg.Retry.BaseDelayMS == 0 {
		cfg.Retry.BaseDelayMS = 2000
	}
	if cfg.Retry.MaxDelayMS == 0 {
		cfg.Retry.MaxDelayMS = 30000
	}
	if cfg.Pipeline.InputDir == "" {
		cfg.Pipeline.InputDir = "Complete"
	}
	if cfg.Pipeline.OutputDir == "" {
		cfg.Pipeline.OutputDir = "Embeddings"
	}
	if cfg.Pipeline.Format == "" {
		cfg.Pipeline.Format = "npy"
	}
	if cfg.Pipeline.Separator == "" {
		cfg.Pipeline.Separator = "\n\n"
	}
	if cfg.Pipeline.ChunkSize == 0 {
		cfg.Pipeline.ChunkSize = 1000
	}
	if cfg.Pipeline.Overlap == 0 {
		cfg.Pipeline.Overlap = 100
	}
	if cfg.Pipeline.MaxWorkers == 0 {
		cfg.Pipeline.MaxWorkers = 5
	}
	if cfg.Pipeline.Extensions == nil {
		cfg.Pipeline.Extensions = []string{".txt", ".pdf"}
	}
	if cfg.Scrape.OutputDir == "" {
		cfg.Scrape.OutputDir = "webpage_data"
	}
	if cfg.Scrape.Output == "" {
		cfg.Scrape.Output = "txt"
	}
	if cfg.Scrape.ProcessedFile == "" {
		cfg.Scrape.ProcessedFile = "processed_urls.txt"
	}
	if cfg.Scrape.TimeoutSeconds == 0 {
		cfg.Scrape.TimeoutSeconds = 10
	}
	if cfg.Scrape.Dataset == "" {
		cfg.Scrape.Dataset = "web_scraped_data"
	}
}
