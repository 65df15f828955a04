/*
 * paramtrace - stack-trace parameter capture agent
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package main

import (
	"fmt"

	"github.com/edsrzf/mmap-go"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jacobin-agent/paramtrace/classfile"
	"github.com/jacobin-agent/paramtrace/shutdown"
)

func newDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump [classfiles...]",
		Short: "decode one or more classfiles and print their structure",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpAll(args)
		},
	}
}

type dumpResult struct {
	path string
	cf   *classfile.Classfile
	err  error
}

// dumpAll decodes every path concurrently via errgroup, mirroring the
// "every exported entry point may run concurrently on arbitrary host
// threads" model of §5 in a form an operator can drive from a terminal
// (§11's concurrent batch decode).
func dumpAll(paths []string) error {
	results := make([]dumpResult, len(paths))

	var g errgroup.Group
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			data, err := readClassfile(p)
			if err != nil {
				results[i] = dumpResult{path: p, err: err}
				return nil
			}
			cf, err := classfile.Decode(data)
			results[i] = dumpResult{path: p, cf: cf, err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := false
	for _, r := range results {
		if r.err != nil {
			fmt.Printf("%s: FAILED: %v\n", r.path, r.err)
			failed = true
			continue
		}
		printClassfile(r.path, r.cf)
	}
	if failed {
		shutdown.Exit(shutdown.CLASSFILE_FORMAT_ERROR)
	}
	return nil
}

func printClassfile(path string, cf *classfile.Classfile) {
	name, _ := cf.ThisClassName()
	fmt.Printf("%s: class %s (major=%d minor=%d)\n", path, name, cf.Major, cf.Minor)
	fmt.Printf("  constant pool: %d entries\n", cf.CP.Count())
	fmt.Printf("  fields: %d, methods: %d, attributes: %d\n", len(cf.Fields), len(cf.Methods), len(cf.Attributes))
	for _, m := range cf.Methods {
		fmt.Printf("  method %s%s\n", m.Name(cf.CP), m.Desc(cf.CP))
	}
}

// readClassfile mmaps the file rather than reading it fully into memory,
// per §11's memory-mapped classfile sources; the mapping is copied once
// into a plain []byte so the returned bytes stay valid after the region
// is unmapped and the file is closed.
func readClassfile(path string) ([]byte, error) {
	f, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer m.Unmap()

	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}
