// Package display renders the CLI's user-facing output: warnings, step
// progress and the per-command result blocks (detection issues, quality
// scores, verdicts, comparison and history tables).
//
// Everything writes to an io.Writer so commands can pass cmd.OutOrStdout()
// and tests can pass a buffer. ANSI colors are added only when the writer is
// a terminal (checked with go-isatty) and NO_COLOR is unset:
//
//	warning := display.Warning{
//	    Title:      "Unmatched artifacts",
//	    Files:      []string{"missing: menu.svg"},
//	    Suggestion: "Promote new captures with 'snapshots promote'",
//	}
//	warning.Display(os.Stderr)
//
//	progress := display.NewProgressIndicator(os.Stdout, len(captures), "Capturing", "Captured")
//	progress.Start("screen(s)")
//	for _, c := range captures {
//	    progress.Step(c.Name)
//	}
//	progress.Complete("screen(s)", failed)
package display
