package conf

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDurationJSONRoundTrip(t *testing.T) {
	t.Parallel()

	d := Duration(90 * time.Second)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))

	var back Duration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}

func TestDurationUnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Duration
		wantErr bool
	}{
		{"string", `"30s"`, Duration(30 * time.Second), false},
		{"nanosecond number", `1000000000`, Duration(time.Second), false},
		{"null resets", `null`, 0, false},
		{"bad string", `"soon"`, 0, true},
		{"bool rejected", `true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestDurationYAML(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, yaml.Unmarshal([]byte(`5m`), &d))
	assert.Equal(t, Duration(5*time.Minute), d)

	require.Error(t, yaml.Unmarshal([]byte(`[1, 2]`), &d))

	out, err := yaml.Marshal(Duration(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "1h0m0s\n", string(out))
}

func TestDurationDecodeHook(t *testing.T) {
	t.Parallel()

	type target struct {
		TTL Duration `mapstructure:"ttl"`
		// Plain durations must keep decoding through viper's stock hook.
		Wait time.Duration `mapstructure:"wait"`
	}

	var got target
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &got,
		DecodeHook: DurationDecodeHook(),
	})
	require.NoError(t, err)

	require.NoError(t, dec.Decode(map[string]any{
		"ttl":  "45s",
		"wait": "2m",
	}))
	assert.Equal(t, Duration(45*time.Second), got.TTL)
	assert.Equal(t, 2*time.Minute, got.Wait)

	dec, err = mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &got,
		DecodeHook: DurationDecodeHook(),
	})
	require.NoError(t, err)
	assert.Error(t, dec.Decode(map[string]any{"ttl": "whenever"}))
}
