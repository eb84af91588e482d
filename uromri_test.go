package uromri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in       string
		expected Kind
	}{
		{"rest", KindRest},
		{"pause", KindPause},
		{"Infuse", KindInfuse},
		{" withdraw ", KindWithdraw},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, k)
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseKind("flush")
		assert.ErrorIs(t, err, ErrUnknownKind)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "rest", KindRest.String())
	assert.Equal(t, "withdraw", KindWithdraw.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "unknown", Kind(42).String())
}

func TestKindMoves(t *testing.T) {
	assert.False(t, KindRest.Moves())
	assert.False(t, KindPause.Moves())
	assert.True(t, KindInfuse.Moves())
	assert.True(t, KindWithdraw.Moves())
	assert.False(t, KindUnknown.Valid())
}

func TestKindColorsDistinct(t *testing.T) {
	seen := map[any]Kind{}
	for _, k := range []Kind{KindRest, KindPause, KindInfuse, KindWithdraw} {
		c := k.Color()
		other, ok := seen[c]
		assert.False(t, ok, "%s shares a color with %s", k, other)
		seen[c] = k
	}
}

func TestKindYAML(t *testing.T) {
	var v struct {
		Kind Kind `yaml:"kind"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("kind: withdraw"), &v))
	assert.Equal(t, KindWithdraw, v.Kind)

	err := yaml.Unmarshal([]byte("kind: drain"), &v)
	assert.ErrorIs(t, err, ErrUnknownKind)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "kind: withdraw\n", string(out))
}
