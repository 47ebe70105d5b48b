package config

import (
	"errors"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentName         = "INVOICE_AGENT_NAME"
	EnvAgentProviderName = "INVOICE_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "INVOICE_AGENT_BASE_URL"
	EnvAgentToken        = "INVOICE_AGENT_TOKEN"
	EnvAgentDeployment   = "INVOICE_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "INVOICE_AGENT_API_VERSION"
	EnvAgentAuthType     = "INVOICE_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "INVOICE_AGENT_MODEL_NAME"
)

// providerOptions maps environment variables onto provider option keys.
var providerOptions = map[string]string{
	EnvAgentToken:      "token",
	EnvAgentDeployment: "deployment",
	EnvAgentAPIVersion: "api_version",
	EnvAgentAuthType:   "auth_type",
}

// FinalizeAgent layers the configured agent over go-agents defaults, applies
// environment overrides, and validates the result.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults

	loadAgentEnv(c)
	return validateAgent(c)
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}

	setString(EnvAgentName, &c.Name)
	setString(EnvAgentProviderName, &c.Provider.Name)
	setString(EnvAgentBaseURL, &c.Provider.BaseURL)
	setString(EnvAgentModelName, &c.Model.Name)

	for env, key := range providerOptions {
		if v := os.Getenv(env); v != "" {
			c.Provider.Options[key] = v
		}
	}
}

func validateAgent(c *gaconfig.AgentConfig) error {
	switch {
	case c.Name == "":
		return errors.New("name required")
	case c.Provider == nil || c.Provider.Name == "":
		return errors.New("provider name required")
	case c.Model == nil:
		return errors.New("model required")
	}
	return nil
}

func setString(env string, dst *string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
