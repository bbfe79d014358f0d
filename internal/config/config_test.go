package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mergeviz/internal/engine"
)

func TestDefault_MatchesEngineDefaults(t *testing.T) {
	p := Default()

	assert.Equal(t, 1.0, p.Speed)
	assert.Equal(t, engine.DefaultPacing(), p.Delays)
	assert.Empty(t, p.Palette)
	assert.Empty(t, p.Name)
}

func TestLoad_Fast(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "fast.cue"))
	require.NoError(t, err)

	assert.Equal(t, "fast", p.Name)
	assert.Equal(t, 4.0, p.Speed)
	assert.Equal(t, 200*time.Millisecond, p.Delays[engine.PauseCompare])
	assert.Equal(t, time.Duration(0), p.Delays[engine.PauseDrain])
	assert.Equal(t, 100*time.Millisecond, p.Delays[engine.PauseDivide], "omitted delays keep defaults")
	assert.Equal(t, map[string]string{"neutral": "#dddddd", "highlight": "#ff0000"}, p.Palette)

	pacer := p.Pacer()
	assert.Equal(t, 50*time.Millisecond, pacer.Delay(engine.PauseCompare))
	assert.Equal(t, 25*time.Millisecond, pacer.Delay(engine.PauseDivide))
}

func TestLoad_NegativeDelay(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "negative.cue"))
	require.Error(t, err)

	var ce *ConfigError
	assert.True(t, errors.As(err, &ce))
}

func TestLoad_UnknownPause(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "unknown_pause.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nap")
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read profile")
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `speed: {`},
		{"zero speed", `speed: 0`},
		{"string delay", `delays: compare: "fast"`},
		{"bad color", `palette: neutral: "white"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "inline.cue")
			assert.Error(t, err)
		})
	}
}

func TestParse_FractionalSpeed(t *testing.T) {
	p, err := Parse([]byte(`speed: 0.5`), "inline.cue")
	require.NoError(t, err)

	assert.Equal(t, 0.5, p.Speed)
	assert.Equal(t, 200*time.Millisecond, p.Pacer().Delay(engine.PauseDivide))
}

func TestConfigError_Format(t *testing.T) {
	err := &ConfigError{Field: "delays.nap", Message: "unknown pause point"}
	assert.Equal(t, "delays.nap: unknown pause point", err.Error())
}
