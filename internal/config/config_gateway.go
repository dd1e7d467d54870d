package config

// applyGatewayDefaults applies global defaults to operation-specific configuration
func (c *Config) applyGatewayDefaults(opCfg *GatewayOperationConfig) {
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.Gateway.Timeout
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.Gateway.MaxRetries
	}
}

// GetParseResumeConfig returns the gateway configuration for resume parsing
// with fallback to global gateway config
func (c *Config) GetParseResumeConfig() GatewayOperationConfig {
	config := c.Gateway.ParseResume
	c.applyGatewayDefaults(&config)
	return config
}

// GetAnalyzeJobConfig returns the gateway configuration for job analysis
// with fallback to global gateway config
func (c *Config) GetAnalyzeJobConfig() GatewayOperationConfig {
	config := c.Gateway.AnalyzeJob
	c.applyGatewayDefaults(&config)
	return config
}

// GetSimilarityConfig returns the gateway configuration for similarity
// scoring with fallback to global gateway config
func (c *Config) GetSimilarityConfig() GatewayOperationConfig {
	config := c.Gateway.Similarity
	c.applyGatewayDefaults(&config)
	return config
}

// GetCoverLetterConfig returns the gateway configuration for cover letter
// generation with fallback to global gateway config
func (c *Config) GetCoverLetterConfig() GatewayOperationConfig {
	config := c.Gateway.CoverLetter
	c.applyGatewayDefaults(&config)
	return config
}

// GetEnhanceConfig returns the gateway configuration for resume enhancement
// with fallback to global gateway config
func (c *Config) GetEnhanceConfig() GatewayOperationConfig {
	config := c.Gateway.Enhance
	c.applyGatewayDefaults(&config)
	return config
}
