package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	log, err := New("warn", false)
	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Desugar().Core().Enabled(zap.ErrorLevel))

	_, err = New("loud", true)
	assert.Error(t, err)
}
