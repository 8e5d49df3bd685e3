package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

const (
	defaultName        = "cowork"
	defaultModel       = "command-r-plus"
	defaultTriageModel = "command-r"
	defaultAuditDBName = "audit.db"

	defaultMaxIterations       = 10
	defaultToolTimeoutSeconds  = 60
	defaultToolMaxRetries      = 2
	defaultTrustLevel          = "trusted"
	defaultBulkChangeThreshold = 5
	defaultLargeWriteThreshold = 50_000
	defaultLintFileLimit       = 10
)

type ConfigStore interface {
	Read() (types.Config, error)
	ReadDefaults() types.Config
	Write(types.Config) error
}

// Ensure FileIO implements ConfigStore interface
var _ ConfigStore = &FileIO{}

type FileIO struct {
	configFilePath string
}

func New() *FileIO {
	configPath, _ := getPath()
	return &FileIO{configFilePath: configPath}
}

func (f *FileIO) WithConfigPath(configFilePath string) *FileIO {
	f.configFilePath = configFilePath
	return f
}

func (f *FileIO) Read() (types.Config, error) {
	return parseFile(f.configFilePath)
}

func (f *FileIO) ReadDefaults() types.Config {
	workdir, _ := os.Getwd()

	return types.Config{
		Name:        defaultName,
		Model:       defaultModel,
		TriageModel: defaultTriageModel,
		WorkDir:     workdir,
		AuditDBPath: defaultAuditDBName,
		Agent: types.AgentConfig{
			MaxIterations:       defaultMaxIterations,
			ToolTimeoutSeconds:  defaultToolTimeoutSeconds,
			ToolMaxRetries:      defaultToolMaxRetries,
			TrustLevel:          defaultTrustLevel,
			BulkChangeThreshold: defaultBulkChangeThreshold,
			LargeWriteThreshold: defaultLargeWriteThreshold,
			LintFileLimit:       defaultLintFileLimit,
		},
	}
}

func (f *FileIO) Write(config types.Config) error {
	if err := os.MkdirAll(filepath.Dir(f.configFilePath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(f.configFilePath, data, 0644)
}

func getPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, "."+defaultName, "config.yaml"), nil
}

func parseFile(fileName string) (types.Config, error) {
	var result types.Config

	buf, err := os.ReadFile(fileName)
	if err != nil {
		return types.Config{}, err
	}

	if err := yaml.Unmarshal(buf, &result); err != nil {
		return types.Config{}, err
	}

	return result, nil
}
