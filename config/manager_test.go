package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	"github.com/jhl-labs/sepilot-desktop-sub001/config"
)

func TestUnitManager(t *testing.T) {
	spec.Run(t, "Testing the config manager", testManager, spec.Report(report.Terminal{}))
}

func testManager(t *testing.T, when spec.G, it spec.S) {
	var configPath string

	writeConfig := func(content string) {
		Expect(os.WriteFile(configPath, []byte(content), 0644)).To(Succeed())
	}

	it.Before(func() {
		RegisterTestingT(t)
		configPath = filepath.Join(t.TempDir(), "config.yaml")
	})

	when("no config file exists", func() {
		it("falls back to the defaults", func() {
			manager := config.NewManager(config.New().WithConfigPath(configPath))

			Expect(manager.Config.Name).To(Equal("cowork"))
			Expect(manager.Config.Model).To(Equal("command-r-plus"))
			Expect(manager.Config.Agent.MaxIterations).To(Equal(10))
			Expect(manager.Config.Agent.BulkChangeThreshold).To(Equal(5))
			Expect(manager.Config.Agent.TrustLevel).To(Equal("trusted"))
		})
	})

	when("a config file exists", func() {
		it("overlays file values onto the defaults", func() {
			writeConfig(`
model: command-r
agent:
  max_iterations: 3
  sensitive_file_patterns:
    - "*.pem"
`)
			manager := config.NewManager(config.New().WithConfigPath(configPath))

			Expect(manager.Config.Model).To(Equal("command-r"))
			Expect(manager.Config.Agent.MaxIterations).To(Equal(3))
			Expect(manager.Config.Agent.SensitiveFilePatterns).To(Equal([]string{"*.pem"}))

			// untouched fields keep their defaults
			Expect(manager.Config.TriageModel).To(Equal("command-r"))
			Expect(manager.Config.Agent.ToolTimeoutSeconds).To(Equal(60))
		})

		it("treats zero values in the file as unset", func() {
			writeConfig(`
agent:
  max_iterations: 0
`)
			manager := config.NewManager(config.New().WithConfigPath(configPath))

			Expect(manager.Config.Agent.MaxIterations).To(Equal(10))
		})
	})

	when("environment variables are set", func() {
		it.After(func() {
			os.Unsetenv("COWORK_API_KEY")
			os.Unsetenv("COWORK_AGENT_MAX_ITERATIONS")
			os.Unsetenv("COWORK_AGENT_ALWAYS_APPROVE_TOOLS")
			os.Unsetenv("COWORK_AGENT_ALLOWED_TOOLS")
		})

		it("overrides file and default values", func() {
			writeConfig(`
agent:
  max_iterations: 3
`)
			os.Setenv("COWORK_API_KEY", "env-key")
			os.Setenv("COWORK_AGENT_MAX_ITERATIONS", "7")
			os.Setenv("COWORK_AGENT_ALWAYS_APPROVE_TOOLS", "true")
			os.Setenv("COWORK_AGENT_ALLOWED_TOOLS", "file_read, file_write")

			manager := config.NewManager(config.New().WithConfigPath(configPath)).WithEnvironment()

			Expect(manager.Config.APIKey).To(Equal("env-key"))
			Expect(manager.Config.Agent.MaxIterations).To(Equal(7))
			Expect(manager.Config.Agent.AlwaysApproveTools).To(BeTrue())
			Expect(manager.Config.Agent.AllowedTools).To(Equal([]string{"file_read", "file_write"}))
		})

		it("derives the api key variable name from the configured name", func() {
			manager := config.NewManager(config.New().WithConfigPath(configPath))

			Expect(manager.APIKeyEnvVarName()).To(Equal("COWORK_API_KEY"))
		})
	})

	when("round-tripping through the store", func() {
		it("writes and reads back the configuration", func() {
			store := config.New().WithConfigPath(configPath)
			cfg := store.ReadDefaults()
			cfg.Model = "command-r"
			cfg.Agent.DryRun = true

			Expect(store.Write(cfg)).To(Succeed())

			read, err := store.Read()
			Expect(err).NotTo(HaveOccurred())
			Expect(read.Model).To(Equal("command-r"))
			Expect(read.Agent.DryRun).To(BeTrue())
		})
	})

	when("showing the configuration", func() {
		it("serializes to yaml", func() {
			manager := config.NewManager(config.New().WithConfigPath(configPath))
			manager.Config.APIKey = "secret"

			out, err := manager.ShowConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("name: cowork"))
			Expect(out).To(ContainSubstring("api_key: secret"))
		})
	})
}
