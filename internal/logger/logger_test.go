package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew_ProductionLevelIsInfo(t *testing.T) {
	log := New("production")
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_DevelopmentLogsDebug(t *testing.T) {
	log := New("dev")
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
