package types

type Config struct {
	Name        string      `yaml:"name"`
	APIKey      string      `yaml:"api_key"`
	Model       string      `yaml:"model"`
	TriageModel string      `yaml:"triage_model"`
	WorkDir     string      `yaml:"work_dir"`
	AuditDBPath string      `yaml:"audit_db_path"`
	Debug       bool        `yaml:"debug"`
	Agent       AgentConfig `yaml:"agent"`
}

type AgentConfig struct {
	MaxIterations      int  `yaml:"max_iterations"`
	ToolTimeoutSeconds int  `yaml:"tool_timeout_seconds"`
	ToolMaxRetries     int  `yaml:"tool_max_retries"`
	DryRun             bool `yaml:"dry_run"`

	// Approval policy
	AllowedTools       []string `yaml:"allowed_tools"`
	AlwaysApproveTools bool     `yaml:"always_approve_tools"`
	TrustLevel         string   `yaml:"trust_level"`

	// Risk analysis overrides (empty = built-in tables)
	SensitiveFilePatterns []string `yaml:"sensitive_file_patterns"`
	BulkChangeThreshold   int      `yaml:"bulk_change_threshold"`
	LargeWriteThreshold   int      `yaml:"large_write_threshold"`

	// Verification
	SkipVerification bool     `yaml:"skip_verification"`
	LintFileLimit    int      `yaml:"lint_file_limit"`
	BackendTestDirs  []string `yaml:"backend_test_dirs"`
}
