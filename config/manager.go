package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jhl-labs/sepilot-desktop-sub001/types"
)

// Manager resolves the effective configuration: built-in defaults, overlaid
// by the config file, optionally overlaid by COWORK_* environment variables.
type Manager struct {
	configStore ConfigStore
	Config      types.Config
}

func NewManager(cs ConfigStore) *Manager {
	configuration := cs.ReadDefaults()

	userConfig, err := cs.Read()
	if err == nil {
		replaceByConfigFile(reflect.ValueOf(&configuration).Elem(), reflect.ValueOf(userConfig))
	}

	return &Manager{configStore: cs, Config: configuration}
}

func (c *Manager) WithEnvironment() *Manager {
	prefix := strings.ToUpper(c.Config.Name) + "_"
	replaceByEnvironment(reflect.ValueOf(&c.Config).Elem(), reflect.TypeOf(c.Config), prefix)
	return c
}

func (c *Manager) APIKeyEnvVarName() string {
	return strings.ToUpper(c.Config.Name) + "_" + "API_KEY"
}

// ShowConfig serializes the current configuration to a YAML string.
func (c *Manager) ShowConfig() (string, error) {
	data, err := yaml.Marshal(c.Config)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// WriteConfig persists the current configuration to the store.
func (c *Manager) WriteConfig() error {
	return c.configStore.Write(c.Config)
}

// replaceByConfigFile overlays non-zero user values onto the defaults,
// descending into nested sections.
func replaceByConfigFile(defaults reflect.Value, user reflect.Value) {
	for i := 0; i < defaults.NumField(); i++ {
		defaultField := defaults.Field(i)
		userField := user.Field(i)

		switch defaultField.Kind() {
		case reflect.Struct:
			replaceByConfigFile(defaultField, userField)
		case reflect.String:
			if userStr := userField.String(); userStr != "" {
				defaultField.SetString(userStr)
			}
		case reflect.Int:
			if userInt := userField.Int(); userInt != 0 {
				defaultField.SetInt(userInt)
			}
		case reflect.Bool:
			if userField.Bool() {
				defaultField.SetBool(true)
			}
		case reflect.Float64:
			if userFloat := userField.Float(); userFloat != 0.0 {
				defaultField.SetFloat(userFloat)
			}
		case reflect.Slice:
			if userField.Len() > 0 {
				defaultField.Set(userField)
			}
		}
	}
}

// replaceByEnvironment overlays environment variables named after the yaml
// tags. Nested sections extend the prefix: the agent's max_iterations is
// COWORK_AGENT_MAX_ITERATIONS. String-slice values are comma separated.
func replaceByEnvironment(v reflect.Value, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("yaml"), ",")[0]
		if tag == "name" || tag == "" {
			continue
		}

		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			replaceByEnvironment(field, field.Type(), prefix+strings.ToUpper(tag)+"_")
			continue
		}

		value := os.Getenv(prefix + strings.ToUpper(tag))
		if value == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(value)
		case reflect.Int:
			intValue, _ := strconv.Atoi(value)
			field.SetInt(int64(intValue))
		case reflect.Bool:
			boolValue, _ := strconv.ParseBool(value)
			field.SetBool(boolValue)
		case reflect.Float64:
			floatValue, _ := strconv.ParseFloat(value, 64)
			field.SetFloat(floatValue)
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				field.Set(reflect.ValueOf(splitList(value)))
			}
		}
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
