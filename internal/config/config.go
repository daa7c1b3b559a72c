package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/Barospooky/ecg-simulator/internal/signal"
	"github.com/Barospooky/ecg-simulator/internal/stream"
	"github.com/Barospooky/ecg-simulator/internal/sweep"
)

// Config is shared by the producer, processor and server binaries.
type Config struct {
	NatsURL    string        `json:"nats-url"`
	HTTPAddr   string        `json:"http-addr"`
	MqttBroker string        `json:"mqtt-broker"`
	MqttTopic  string        `json:"mqtt-topic"`
	FrameRate  float64       `json:"frame-rate"`
	SampleRate float64       `json:"sample-rate"`
	Batch      int           `json:"batch"`
	Noise      float64       `json:"noise"`
	Display    sweep.Display `json:"display"`
	Scenario   string        `json:"scenario"`
	LogFile    string        `json:"log-file"`
	Verbose    bool          `json:"verbose"`

	WaveSubject    string `json:"wave-subject"`
	FrameSubject   string `json:"frame-subject"`
	ParamsSubject  string `json:"params-subject"`
	ControlSubject string `json:"control-subject"`
}

var defaults = Config{
	NatsURL:        "nats://127.0.0.1:4222",
	HTTPAddr:       ":8080",
	MqttTopic:      "ecg/params",
	FrameRate:      30,
	SampleRate:     250,
	Batch:          10,
	Noise:          0.02,
	Display:        sweep.DefaultDisplay(),
	WaveSubject:    stream.SubjectWave,
	FrameSubject:   stream.SubjectFrame,
	ParamsSubject:  stream.SubjectParams,
	ControlSubject: stream.SubjectControl,
}

func Default() Config { return defaults }

// Load reads the given .env files (".env" when none is given) into the
// process environment, then overlays ECG_* variables on the defaults.
// Missing .env files are not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env: %w", err)
	}
	return FromEnv()
}

// FromEnv overlays ECG_* environment variables on the defaults.
func FromEnv() (Config, error) {
	c := defaults
	strs := map[string]*string{
		"ECG_NATS_URL":        &c.NatsURL,
		"ECG_HTTP_ADDR":       &c.HTTPAddr,
		"ECG_MQTT_BROKER":     &c.MqttBroker,
		"ECG_MQTT_TOPIC":      &c.MqttTopic,
		"ECG_SCENARIO":        &c.Scenario,
		"ECG_LOG_FILE":        &c.LogFile,
		"ECG_WAVE_SUBJECT":    &c.WaveSubject,
		"ECG_FRAME_SUBJECT":   &c.FrameSubject,
		"ECG_PARAMS_SUBJECT":  &c.ParamsSubject,
		"ECG_CONTROL_SUBJECT": &c.ControlSubject,
	}
	for k, dst := range strs {
		if v, ok := os.LookupEnv(k); ok {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"ECG_FRAME_RATE":     &c.FrameRate,
		"ECG_SAMPLE_RATE":    &c.SampleRate,
		"ECG_NOISE":          &c.Noise,
		"ECG_DISPLAY_WIDTH":  &c.Display.Width,
		"ECG_DISPLAY_HEIGHT": &c.Display.Height,
		"ECG_PIXELS_PER_MV":  &c.Display.VerticalScale,
	}
	for k, dst := range floats {
		v, ok := os.LookupEnv(k)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", k, err)
		}
		*dst = f
	}

	if v, ok := os.LookupEnv("ECG_BATCH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("ECG_BATCH: %w", err)
		}
		c.Batch = n
	}
	if v, ok := os.LookupEnv("ECG_VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("ECG_VERBOSE: %w", err)
		}
		c.Verbose = b
	}
	return c, nil
}

// LoadScenario reads a beat configuration from a JSON file. Fields the file
// leaves out keep their default values; an empty path yields the defaults.
func LoadScenario(path string) (signal.BeatConfig, error) {
	cfg := signal.DefaultBeatConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return signal.BeatConfig{}, fmt.Errorf("failed to read scenario: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return signal.BeatConfig{}, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	return cfg, nil
}
