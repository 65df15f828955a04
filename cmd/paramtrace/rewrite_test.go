/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferClassName(t *testing.T) {
	assert.Equal(t, "java/lang/Throwable", inferClassName("/tmp/Throwable.class"))
	assert.Equal(t, "java/lang/StackTraceElement", inferClassName("StackTraceElement.class"))
	assert.Equal(t, "Widget", inferClassName("build/Widget.class"))
}
