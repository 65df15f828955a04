/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import "os"

func openReadOnly(path string) (*os.File, error) {
	return os.Open(path)
}
