package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvWorkflowMaxRetries        = "INVOICE_WORKFLOW_MAX_RETRIES"
	EnvWorkflowApprovalThreshold = "INVOICE_WORKFLOW_APPROVAL_THRESHOLD"
	EnvWorkflowDefaultConfidence = "INVOICE_WORKFLOW_DEFAULT_CONFIDENCE"
	EnvWorkflowFuzzyCutoff       = "INVOICE_WORKFLOW_FUZZY_CUTOFF"
	EnvWorkflowDecisionTimeout   = "INVOICE_WORKFLOW_DECISION_TIMEOUT"
	EnvWorkflowAuditPath         = "INVOICE_WORKFLOW_AUDIT_PATH"
	EnvWorkflowVisionFallback    = "INVOICE_WORKFLOW_VISION_FALLBACK"
)

// WorkflowConfig holds the tunable workflow policy.
type WorkflowConfig struct {
	MaxRetries        int     `toml:"max_retries"`
	ApprovalThreshold float64 `toml:"approval_threshold"`
	DefaultConfidence float64 `toml:"default_confidence"`
	FuzzyCutoff       float64 `toml:"fuzzy_cutoff"`
	DecisionTimeout   string  `toml:"decision_timeout"`
	AuditPath         string  `toml:"audit_path"`
	VisionFallback    *bool   `toml:"vision_fallback"`
}

// DecisionTimeoutDuration returns DecisionTimeout as a time.Duration.
func (c *WorkflowConfig) DecisionTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DecisionTimeout)
	return d
}

// VisionFallbackEnabled reports whether scanned PDFs are transcribed.
func (c *WorkflowConfig) VisionFallbackEnabled() bool {
	return c.VisionFallback == nil || *c.VisionFallback
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WorkflowConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkflowConfig) Merge(overlay *WorkflowConfig) {
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
	if overlay.ApprovalThreshold != 0 {
		c.ApprovalThreshold = overlay.ApprovalThreshold
	}
	if overlay.DefaultConfidence != 0 {
		c.DefaultConfidence = overlay.DefaultConfidence
	}
	if overlay.FuzzyCutoff != 0 {
		c.FuzzyCutoff = overlay.FuzzyCutoff
	}
	if overlay.DecisionTimeout != "" {
		c.DecisionTimeout = overlay.DecisionTimeout
	}
	if overlay.AuditPath != "" {
		c.AuditPath = overlay.AuditPath
	}
	if overlay.VisionFallback != nil {
		c.VisionFallback = overlay.VisionFallback
	}
}

func (c *WorkflowConfig) loadDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.ApprovalThreshold == 0 {
		c.ApprovalThreshold = 10000
	}
	if c.DefaultConfidence == 0 {
		c.DefaultConfidence = 0.8
	}
	if c.FuzzyCutoff == 0 {
		c.FuzzyCutoff = 0.8
	}
	if c.DecisionTimeout == "" {
		c.DecisionTimeout = "2m"
	}
	if c.AuditPath == "" {
		c.AuditPath = "run_logs.json"
	}
}

func (c *WorkflowConfig) loadEnv() {
	if v := os.Getenv(EnvWorkflowMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	float := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	float(EnvWorkflowApprovalThreshold, &c.ApprovalThreshold)
	float(EnvWorkflowDefaultConfidence, &c.DefaultConfidence)
	float(EnvWorkflowFuzzyCutoff, &c.FuzzyCutoff)

	if v := os.Getenv(EnvWorkflowDecisionTimeout); v != "" {
		c.DecisionTimeout = v
	}
	if v := os.Getenv(EnvWorkflowAuditPath); v != "" {
		c.AuditPath = v
	}
	if v := os.Getenv(EnvWorkflowVisionFallback); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.VisionFallback = &b
		}
	}
}

func (c *WorkflowConfig) validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries: %d", c.MaxRetries)
	}
	if c.ApprovalThreshold <= 0 {
		return fmt.Errorf("invalid approval_threshold: %v", c.ApprovalThreshold)
	}
	if c.DefaultConfidence < 0 || c.DefaultConfidence > 1 {
		return fmt.Errorf("default_confidence must be within [0, 1]: %v", c.DefaultConfidence)
	}
	if c.FuzzyCutoff <= 0 || c.FuzzyCutoff > 1 {
		return fmt.Errorf("fuzzy_cutoff must be within (0, 1]: %v", c.FuzzyCutoff)
	}
	d, err := time.ParseDuration(c.DecisionTimeout)
	if err != nil {
		return fmt.Errorf("invalid decision_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("decision_timeout must be positive: %s", c.DecisionTimeout)
	}
	return nil
}
