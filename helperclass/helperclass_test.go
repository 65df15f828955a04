/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package helperclass

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateReportsMissingBlob(t *testing.T) {
	// helper.class is committed empty in this tree (§1: opaque blob,
	// supplied by the build pipeline that compiles the real helper).
	err := Validate()
	assert.ErrorIs(t, err, ErrMissingBlob)
}
