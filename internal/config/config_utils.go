package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// applyFallbacks applies environment variable fallbacks
func (c *Config) applyFallbacks() {
	// Note: gateway/identity key fallbacks are resolved by the Vault overlay

	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()
	c.applyObservabilityDefaults()
}

// applyServerAPIKeyFallbacks applies API key fallbacks from environment variables
func (c *Config) applyServerAPIKeyFallbacks() {
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("APPLYPILOT_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = strings.Split(apiKeysEnv, ",")
			// Trim whitespace from each key
			for i, key := range c.Server.APIKeys {
				c.Server.APIKeys[i] = strings.TrimSpace(key)
			}
		}
	}
}

// applyTLSDefaults applies default TLS configuration values
func (c *Config) applyTLSDefaults() {
	// Set default client auth policy for mutual TLS if not specified
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}

	// Set default TLS version if not specified
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}

	// Surface console output when debugging
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	// Try to get hostname, fallback to default
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	// Log config file source
	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	// Log environment variables that are set
	envVars := []string{
		"APPLYPILOT_GATEWAY_BASEURL",
		"APPLYPILOT_GATEWAY_APIKEY",
		"APPLYPILOT_IDENTITY_BASEURL",
		"APPLYPILOT_IDENTITY_SERVICEKEY",
		"APPLYPILOT_SERVER_PORT",
		"APPLYPILOT_SERVER_HOST",
		"APPLYPILOT_APP_LOGLEVEL",
		"APPLYPILOT_VAULT_ENABLED",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		if value := os.Getenv(envVar); value != "" {
			// Mask sensitive values
			if strings.Contains(strings.ToLower(envVar), "apikey") || strings.Contains(strings.ToLower(envVar), "key") {
				log.Printf("[CONFIG]   %s=***MASKED***", envVar)
			} else {
				log.Printf("[CONFIG]   %s=%s", envVar, value)
			}
			hasEnvVars = true
		}
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	// Log key configuration values (with sensitive data masked)
	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] Gateway Base URL: %s", c.Gateway.BaseURL)
	if c.Gateway.APIKey != "" {
		log.Println("[CONFIG] Gateway API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] Gateway API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Identity Base URL: %s", c.Identity.BaseURL)
	log.Printf("[CONFIG] Server Host: %s", c.Server.Host)
	log.Printf("[CONFIG] Server Port: %s", c.Server.Port)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] TLS Mode: %s", c.Server.TLS.Mode)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)

	// Log operation-specific gateway timeouts
	log.Println("[CONFIG] === Gateway Operation Configurations ===")
	log.Printf("[CONFIG] ParseResume - Timeout: %v", derefDuration(c.Gateway.ParseResume.Timeout, c.Gateway.Timeout))
	log.Printf("[CONFIG] AnalyzeJob - Timeout: %v", derefDuration(c.Gateway.AnalyzeJob.Timeout, c.Gateway.Timeout))
	log.Printf("[CONFIG] Similarity - Timeout: %v", derefDuration(c.Gateway.Similarity.Timeout, c.Gateway.Timeout))
	log.Printf("[CONFIG] CoverLetter - Timeout: %v", derefDuration(c.Gateway.CoverLetter.Timeout, c.Gateway.Timeout))
	log.Printf("[CONFIG] Enhance - Timeout: %v", derefDuration(c.Gateway.Enhance.Timeout, c.Gateway.Timeout))

	log.Println("[CONFIG] =====================================")
}

func derefDuration(d *time.Duration, fallback time.Duration) time.Duration {
	if d != nil {
		return *d
	}
	return fallback
}
