// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. GESTURE_MQTT_BROKER overrides MQTT_BROKER.
const EnvPrefix = "GESTURE"

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDPipeline string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicPose    string
	TopicGesture string
	TopicStatus  string
	TopicReset   string
	TopicSample  string

	// Sample source: mock, mpu9250, serial or mqtt
	SampleSource string

	// IMU Hardware
	IMUSPIDevice string
	IMUCSPin     string
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// Serial bridge
	SerialPort     string
	SerialBaudRate int

	// Timing (milliseconds)
	SampleInterval   int
	EstimateInterval int
	SampleWait       int
	StatusInterval   int

	AdaptiveFilter bool

	// Gesture windows (milliseconds)
	Point1Timeout int
	Point2Timeout int
	TemplatesFile string

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds

	// Sinks, disabled when empty
	JournalPath    string
	InfluxDBURL    string
	InfluxDBToken  string
	InfluxDBOrg    string
	InfluxDBBucket string
}

var defaults = map[string]any{
	"MQTT_BROKER":             "tcp://localhost:1883",
	"MQTT_CLIENT_ID_PIPELINE": "gesture-pipeline",
	"MQTT_CLIENT_ID_CONSOLE":  "gesture-console",
	"MQTT_CLIENT_ID_WEB":      "gesture-web",
	"MQTT_CLIENT_ID_DISPLAY":  "gesture-display",

	"TOPIC_POSE":    "gesture/pose",
	"TOPIC_GESTURE": "gesture/action",
	"TOPIC_STATUS":  "gesture/status",
	"TOPIC_RESET":   "gesture/reset",
	"TOPIC_SAMPLE":  "gesture/sample",

	"SAMPLE_SOURCE": "mock",

	"IMU_SPI_DEVICE":  "/dev/spidev0.0",
	"IMU_CS_PIN":      "8",
	"IMU_ACCEL_RANGE": 0,
	"IMU_GYRO_RANGE":  0,

	"SERIAL_PORT":      "/dev/ttyUSB0",
	"SERIAL_BAUD_RATE": 115200,

	"SAMPLE_INTERVAL":   20,
	"ESTIMATE_INTERVAL": 50,
	"SAMPLE_WAIT":       30,
	"STATUS_INTERVAL":   1000,

	"ADAPTIVE_FILTER": true,

	"POINT1_TIMEOUT": 5000,
	"POINT2_TIMEOUT": 1000,
	"TEMPLATES_FILE": "",

	"WEB_SERVER_PORT": 8080,

	"DISPLAY_UPDATE_INTERVAL": 200,

	"JOURNAL_PATH":    "",
	"INFLUXDB_URL":    "",
	"INFLUXDB_TOKEN":  "",
	"INFLUXDB_ORG":    "",
	"INFLUXDB_BUCKET": "",
}

var sampleSources = []string{"mock", "mpu9250", "serial", "mqtt"}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: only reachable through InitGlobal and Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// NewViper returns a viper instance with every key defaulted and
// GESTURE_* environment overrides enabled.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FlagBinding lets a command-line flag override one config key when the
// flag is set explicitly.
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// Load reads the KEY=VALUE configuration file at configPath. An empty path
// yields the defaults plus environment overrides. Precedence, highest
// first: explicitly set flags, GESTURE_* environment, file, defaults.
func Load(configPath string, flags ...FlagBinding) (*Config, error) {
	v := NewViper()
	for _, b := range flags {
		if b.Flag == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, fmt.Errorf("bind flag --%s to %s: %w", b.Flag.Name, b.Key, err)
		}
	}
	if configPath != "" {
		path, err := homedir.Expand(configPath)
		if err != nil {
			return nil, fmt.Errorf("expand config path %q: %w", configPath, err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates a populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	if err := checkKeys(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		MQTTBroker:           v.GetString("MQTT_BROKER"),
		MQTTClientIDPipeline: v.GetString("MQTT_CLIENT_ID_PIPELINE"),
		MQTTClientIDConsole:  v.GetString("MQTT_CLIENT_ID_CONSOLE"),
		MQTTClientIDWeb:      v.GetString("MQTT_CLIENT_ID_WEB"),
		MQTTClientIDDisplay:  v.GetString("MQTT_CLIENT_ID_DISPLAY"),

		TopicPose:    v.GetString("TOPIC_POSE"),
		TopicGesture: v.GetString("TOPIC_GESTURE"),
		TopicStatus:  v.GetString("TOPIC_STATUS"),
		TopicReset:   v.GetString("TOPIC_RESET"),
		TopicSample:  v.GetString("TOPIC_SAMPLE"),

		SampleSource: strings.ToLower(v.GetString("SAMPLE_SOURCE")),

		IMUSPIDevice: v.GetString("IMU_SPI_DEVICE"),
		IMUCSPin:     v.GetString("IMU_CS_PIN"),

		SerialPort:     v.GetString("SERIAL_PORT"),
		SerialBaudRate: v.GetInt("SERIAL_BAUD_RATE"),

		SampleInterval:   v.GetInt("SAMPLE_INTERVAL"),
		EstimateInterval: v.GetInt("ESTIMATE_INTERVAL"),
		SampleWait:       v.GetInt("SAMPLE_WAIT"),
		StatusInterval:   v.GetInt("STATUS_INTERVAL"),

		AdaptiveFilter: v.GetBool("ADAPTIVE_FILTER"),

		Point1Timeout: v.GetInt("POINT1_TIMEOUT"),
		Point2Timeout: v.GetInt("POINT2_TIMEOUT"),

		WebServerPort:         v.GetInt("WEB_SERVER_PORT"),
		DisplayUpdateInterval: v.GetInt("DISPLAY_UPDATE_INTERVAL"),

		InfluxDBURL:    v.GetString("INFLUXDB_URL"),
		InfluxDBToken:  v.GetString("INFLUXDB_TOKEN"),
		InfluxDBOrg:    v.GetString("INFLUXDB_ORG"),
		InfluxDBBucket: v.GetString("INFLUXDB_BUCKET"),
	}

	accel := v.GetInt("IMU_ACCEL_RANGE")
	if accel < 0 || accel > 3 {
		return nil, fmt.Errorf("IMU_ACCEL_RANGE must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", accel)
	}
	cfg.IMUAccelRange = byte(accel)
	gyro := v.GetInt("IMU_GYRO_RANGE")
	if gyro < 0 || gyro > 3 {
		return nil, fmt.Errorf("IMU_GYRO_RANGE must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", gyro)
	}
	cfg.IMUGyroRange = byte(gyro)

	var err error
	if cfg.TemplatesFile, err = expand("TEMPLATES_FILE", v.GetString("TEMPLATES_FILE")); err != nil {
		return nil, err
	}
	if cfg.JournalPath, err = expand("JOURNAL_PATH", v.GetString("JOURNAL_PATH")); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkKeys rejects keys the application does not know, usually typos in
// the config file.
func checkKeys(v *viper.Viper) error {
	var unknown []string
	for _, k := range v.AllKeys() {
		if _, ok := defaults[strings.ToUpper(k)]; !ok {
			unknown = append(unknown, strings.ToUpper(k))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown config key(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

func expand(key, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	out, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", key, p, err)
	}
	return out, nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	known := false
	for _, s := range sampleSources {
		if c.SampleSource == s {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("SAMPLE_SOURCE must be one of %s, got %q", strings.Join(sampleSources, ", "), c.SampleSource)
	}
	if c.SampleSource == "mpu9250" && c.IMUSPIDevice == "" {
		return fmt.Errorf("IMU_SPI_DEVICE is required for the mpu9250 source")
	}
	if c.SampleSource == "serial" && (c.SerialPort == "" || c.SerialBaudRate <= 0) {
		return fmt.Errorf("SERIAL_PORT and SERIAL_BAUD_RATE are required for the serial source")
	}
	for key, ms := range map[string]int{
		"SAMPLE_INTERVAL":         c.SampleInterval,
		"ESTIMATE_INTERVAL":       c.EstimateInterval,
		"STATUS_INTERVAL":         c.StatusInterval,
		"POINT1_TIMEOUT":          c.Point1Timeout,
		"POINT2_TIMEOUT":          c.Point2Timeout,
		"DISPLAY_UPDATE_INTERVAL": c.DisplayUpdateInterval,
	} {
		if ms <= 0 {
			return fmt.Errorf("%s must be positive, got %d", key, ms)
		}
	}
	if c.SampleWait < 0 {
		return fmt.Errorf("SAMPLE_WAIT must not be negative, got %d", c.SampleWait)
	}
	if c.InfluxDBURL != "" && (c.InfluxDBOrg == "" || c.InfluxDBBucket == "") {
		return fmt.Errorf("INFLUXDB_ORG and INFLUXDB_BUCKET are required when INFLUXDB_URL is set")
	}
	return nil
}

// Millis converts a millisecond config value to a time.Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string, flags ...FlagBinding) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath, flags...)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
