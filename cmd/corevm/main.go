package main

import (
	"fmt"
	"os"

	"github.com/mattstark/corevm/pkg/vmerrors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a vmerrors.Kind to a distinct process exit code
// (spec.md §6): format/descriptor problems in the input class are
// distinguished from resolution failures, which are distinguished from
// everything else.
func exitCodeFor(err error) int {
	kind, ok := vmerrors.KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case vmerrors.Format, vmerrors.Descriptor:
		return 2
	case vmerrors.ClassNotFound, vmerrors.Resolution, vmerrors.NoSuchMethod, vmerrors.NoSuchField:
		return 3
	case vmerrors.NativeMissing, vmerrors.UnsupportedOpcode:
		return 4
	default:
		return 1
	}
}
