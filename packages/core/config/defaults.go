package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30000, // 30 seconds
		WindowSize:      5,
		RateLimit:       0,
		CacheTTL:        300, // 5 minutes
		CacheCapacity:   100,
		HistoryLimit:    1000,
		HistoryDebounce: 100, // milliseconds
		HistoryCacheTTL: 60,  // seconds
		HistoryPath:     "",
		MaxBodySize:     100_000,
		MaxRedirects:    10,
		Proxy:           "",
		Headers:         nil,
	}
}
