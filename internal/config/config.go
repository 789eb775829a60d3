package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/mask-sentry/internal/constants"
)

//go:embed mask_labels.yaml
var maskLabelsYAML []byte

type Config struct {
	Camera CameraConfig
	Models ModelsConfig
	Store  StoreConfig
	Alerts AlertsConfig
	Web    WebConfig
	Log    LogConfig
}

type CameraConfig struct {
	Source   string // device index or stream URL, defaults to 0
	Rotation int    // sensor orientation in degrees: 0, 90, 180 or 270
	Facing   string // front or back
}

type ModelsConfig struct {
	DetectorModel  string // SSD face detector weights (e.g. res10_300x300_ssd.caffemodel)
	DetectorConfig string // SSD prototxt
	EmbedderModel  string // face embedding model (ONNX or TF)
	EmbedderConfig string
	MaskModel      string // mask classifier model
	MaskConfig     string
	MaskLabels     []string
}

type StoreConfig struct {
	Dir          string // private record directory
	ExportDir    string // mirror directory for portable copies (optional)
	ContactsPath string // YAML label -> email book (optional)
}

type AlertsConfig struct {
	QueueSize    int
	MQTTBroker   string // host:port, MQTT sink disabled when empty
	MQTTTopic    string
	MQTTClientID string
	RedisAddress string // host:port, Redis sink disabled when empty
	RedisChannel string
	RedisMaxIdle int
}

type WebConfig struct {
	Port           int
	Host           string
	APIToken       string   // bearer token for mutating endpoints, open when empty
	AllowedOrigins []string // CORS origins besides localhost
}

type LogConfig struct {
	Level  string // logrus level name
	Format string // text or json
}

type maskLabelsFile struct {
	Labels []string `yaml:"labels"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString returns the env var or the default when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var labels maskLabelsFile
	if err := yaml.Unmarshal(maskLabelsYAML, &labels); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded mask_labels.yaml: " + err.Error())
	}
	if s := os.Getenv("MASK_LABELS"); s != "" {
		labels.Labels = splitList(s)
	}

	// Rotation 0 is valid, so envInt cannot be used here.
	rotation := 0
	if s := os.Getenv("CAMERA_ROTATION"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			rotation = n
		} else {
			rotation = -1
		}
	}

	dataDir := envString("DATA_DIR", "data")

	return &Config{
		Camera: CameraConfig{
			Source:   envString("CAMERA_SOURCE", "0"),
			Rotation: rotation,
			Facing:   envString("CAMERA_FACING", "back"),
		},
		Models: ModelsConfig{
			DetectorModel:  os.Getenv("DETECTOR_MODEL"),
			DetectorConfig: os.Getenv("DETECTOR_CONFIG"),
			EmbedderModel:  os.Getenv("EMBEDDER_MODEL"),
			EmbedderConfig: os.Getenv("EMBEDDER_CONFIG"),
			MaskModel:      os.Getenv("MASK_MODEL"),
			MaskConfig:     os.Getenv("MASK_CONFIG"),
			MaskLabels:     labels.Labels,
		},
		Store: StoreConfig{
			Dir:          envString("RECORDS_DIR", filepath.Join(dataDir, "records")),
			ExportDir:    os.Getenv("RECORDS_EXPORT_DIR"),
			ContactsPath: envString("CONTACTS_PATH", filepath.Join(dataDir, "contacts.yaml")),
		},
		Alerts: AlertsConfig{
			QueueSize:    envInt("ALERT_QUEUE_SIZE", constants.AlertQueueSize),
			MQTTBroker:   os.Getenv("MQTT_BROKER"),
			MQTTTopic:    envString("MQTT_TOPIC", constants.DefaultMQTTTopic),
			MQTTClientID: envString("MQTT_CLIENT_ID", "mask-sentry"),
			RedisAddress: os.Getenv("REDIS_ADDRESS"),
			RedisChannel: envString("REDIS_CHANNEL", constants.DefaultRedisChannel),
			RedisMaxIdle: envInt("REDIS_MAX_IDLE", 3),
		},
		Web: WebConfig{
			Port:           envInt("HTTP_PORT", constants.DefaultHTTPPort),
			Host:           os.Getenv("HTTP_HOST"),
			APIToken:       os.Getenv("WEB_API_TOKEN"),
			AllowedOrigins: splitList(os.Getenv("WEB_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "text"),
		},
	}
}

// Validate checks the settings the watch command cannot start without.
func (c *Config) Validate() error {
	var errs []error

	switch c.Camera.Rotation {
	case 0, 90, 180, 270:
	default:
		errs = append(errs, fmt.Errorf("CAMERA_ROTATION must be 0, 90, 180 or 270, got %d", c.Camera.Rotation))
	}
	switch strings.ToLower(c.Camera.Facing) {
	case "front", "back":
	default:
		errs = append(errs, fmt.Errorf("CAMERA_FACING must be front or back, got %q", c.Camera.Facing))
	}

	if c.Models.DetectorModel == "" {
		errs = append(errs, errors.New("DETECTOR_MODEL is required"))
	}
	if c.Models.EmbedderModel == "" {
		errs = append(errs, errors.New("EMBEDDER_MODEL is required"))
	}
	if c.Models.MaskModel == "" {
		errs = append(errs, errors.New("MASK_MODEL is required"))
	}
	if len(c.Models.MaskLabels) == 0 {
		errs = append(errs, errors.New("at least one mask label is required"))
	}

	if c.Store.Dir == "" {
		errs = append(errs, errors.New("RECORDS_DIR is required"))
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
