package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvDefaults(t *testing.T) {
	svc, err := NewEnv()
	require.NoError(t, err)

	params := svc.GetModelParameters()
	assert.Equal(t, 8, svc.GetSampleInterval())
	assert.Equal(t, 224, params.ImageSize)
	assert.Equal(t, 0.5, params.Threshold)
	assert.Equal(t, "auto", params.Device)
	assert.Empty(t, params.WeightsPath)
	assert.Equal(t, int64(500*1024*1024), svc.GetMaxUploadBytes())
	assert.Equal(t, "data/archive", svc.GetArchiveFolder())
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("SAMPLE_INTERVAL", "4")
	t.Setenv("MODEL_WEIGHTS_PATH", "/tmp/tuned.onnx")
	t.Setenv("MODEL_DEVICE", "cpu")

	svc, err := NewEnv()
	require.NoError(t, err)
	assert.Equal(t, 4, svc.GetSampleInterval())
	assert.Equal(t, "/tmp/tuned.onnx", svc.GetModelParameters().WeightsPath)
	assert.Equal(t, "cpu", svc.GetModelParameters().Device)
}

func TestNewEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero interval", key: "SAMPLE_INTERVAL", value: "0"},
		{name: "negative image size", key: "IMAGE_SIZE", value: "-1"},
		{name: "threshold above one", key: "FAKE_THRESHOLD", value: "1.5"},
		{name: "unknown device", key: "MODEL_DEVICE", value: "tpu"},
		{name: "no workers", key: "WATCH_MAX_WORKERS", value: "0"},
		{name: "not a number", key: "SAMPLE_INTERVAL", value: "eight"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := NewEnv()
			assert.Error(t, err)
		})
	}
}
