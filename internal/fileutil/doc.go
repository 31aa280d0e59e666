// Package fileutil finds frames and scenario files on disk.
//
// ScanDirectory is the general walker: extension and regex filters,
// optional recursion with a depth limit, hidden and excluded directories
// skipped, non-fatal errors collected rather than aborting the walk, and
// sorted absolute paths in the result.
//
// On top of it sit the helpers the CLI uses:
//
//	files, err := fileutil.ExpandArtifactArgs([]string{"shots/", "extra.svg"}, true)
//
//	pairs, err := fileutil.PairArtifacts("baselines/", "screenshots/", true)
//	for _, p := range pairs.Pairs {
//	    // compare p.Baseline with p.Current
//	}
//
// PairArtifacts matches two trees by relative path and reports what exists
// only on one side, which is how directory comparisons find removed and new
// frames.
package fileutil
