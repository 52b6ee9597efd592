package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestOptionsFromEnvDefaults(t *testing.T) {
	opts, err := optionsFromEnv(envMap(nil))
	require.NoError(t, err)
	require.Empty(t, opts.BusName)
	require.Empty(t, opts.Transcript)
	require.False(t, opts.Silence)
	require.Zero(t, opts.Latency)
	require.Empty(t, opts.Missing)
}

func TestOptionsFromEnvReadsTuning(t *testing.T) {
	opts, err := optionsFromEnv(envMap(map[string]string{
		"PARLO_STUB_BUS_NAME":   "org.example.Speech",
		"PARLO_STUB_TRANSCRIPT": "hello there",
		"PARLO_STUB_SILENCE":    "1",
		"PARLO_STUB_LATENCY_MS": "250",
		"PARLO_STUB_FAIL_WITH":  "model exploded",
		"PARLO_STUB_MISSING":    "whisper, ffmpeg , ",
	}))
	require.NoError(t, err)
	require.Equal(t, "org.example.Speech", opts.BusName)
	require.Equal(t, "hello there", opts.Transcript)
	require.True(t, opts.Silence)
	require.Equal(t, 250*time.Millisecond, opts.Latency)
	require.Equal(t, "model exploded", opts.FailWith)
	require.Equal(t, []string{"whisper", "ffmpeg"}, opts.Missing)
}

func TestOptionsFromEnvRejectsBadLatency(t *testing.T) {
	for _, raw := range []string{"abc", "-5", "1.5"} {
		_, err := optionsFromEnv(envMap(map[string]string{"PARLO_STUB_LATENCY_MS": raw}))
		require.Error(t, err, raw)
		require.Contains(t, err.Error(), "PARLO_STUB_LATENCY_MS")
	}
}
