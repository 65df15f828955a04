/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacobin-agent/paramtrace/trace"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	d, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3000, d.TraceDepth)
	assert.Equal(t, 2, d.SkipFrames)
	assert.Equal(t, trace.INFO, d.LogLevel)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, trace.SEVERE, parseLevel("severe"))
	assert.Equal(t, trace.WARNING, parseLevel("WARNING"))
	assert.Equal(t, trace.INFO, parseLevel("bogus"))
}
