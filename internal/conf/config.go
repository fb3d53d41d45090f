// config.go: settings struct and functions to load and save TerraGuard configuration.
package conf

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/terraguard/terraguard-go/internal/errors"
)

//go:embed config.yaml
var defaultConfig []byte

// LogConfig contains settings for a rotated log file.
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to the log file
}

// MainSettings contains main application settings.
type MainSettings struct {
	Name string    // node name, used in logs and MQTT payloads
	Log  LogConfig // main application log
}

// SensorSettings describes the telemetry source. The serial link is fixed at
// 9600 baud, 8 data bits, 1 stop bit, no parity to match the sensing node
// firmware; only the endpoint itself is configurable.
type SensorSettings struct {
	Port     string // serial device path, empty to scan available ports
	BaudRate int    // serial baud rate
}

// ModelSettings describes where the exported model descriptor lives.
type ModelSettings struct {
	Source string // filesystem path or http(s) URL to the model weights JSON
}

// TelemetrySettings contains settings for the Prometheus metrics endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to expose a /metrics endpoint
	Listen  string // listen address and port
}

// MQTTSettings contains settings for republishing readings to an MQTT broker.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT publishing
	Broker   string // broker URL, e.g. tcp://localhost:1883
	Topic    string // topic for accepted readings
	Username string
	Password string
	Retain   bool // true to retain messages at the broker
}

// RealtimeSettings contains settings for realtime monitoring mode.
type RealtimeSettings struct {
	Log       LogConfig         // readings log file
	Telemetry TelemetrySettings // Prometheus endpoint settings
	MQTT      MQTTSettings      // MQTT republishing settings
}

// Settings is the root configuration for the application.
type Settings struct {
	Debug    bool // true to enable debug level logging
	Main     MainSettings
	Sensor   SensorSettings
	Model    ModelSettings
	Realtime RealtimeSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new
// Settings instance, which becomes the process-wide instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("terraguard")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default configuration to the first
// config path and loads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// GetDefaultConfigPaths returns the list of directories searched for the
// configuration file, most specific first.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user directory: %w", err)
	}

	return []string{
		filepath.Join(homeDir, ".config", "terraguard"),
		".",
	}, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig writes the given settings to the configuration file path.
// The write is atomic: data goes to a temporary file which is then renamed.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
