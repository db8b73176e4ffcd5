package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkgr-labs/pkgr/internal/installer"
)

// confirmer returns an installer.ConfirmFunc that prints the plan to w and
// reads a yes/no answer from r. An empty answer means yes.
func confirmer(r io.Reader, w io.Writer) installer.ConfirmFunc {
	return func(plan *installer.InstallPlan) (bool, error) {
		fmt.Fprint(w, "? Proceed with installation? (Y/n) ")
		scanner := bufio.NewScanner(r)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, fmt.Errorf("reading answer: %w", err)
			}
			return true, nil
		}
		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "", "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

// printPlan lists what an install will do.
func printPlan(w io.Writer, plan *installer.InstallPlan) {
	printer.Fprintf(w, "Packages to install (%d):\n", len(plan.Packages))
	for _, p := range plan.Packages {
		fmt.Fprintf(w, "  %s\n", p)
	}
	if len(plan.Skipped) > 0 {
		printer.Fprintf(w, "Already installed (%d):\n", len(plan.Skipped))
		for _, p := range plan.Skipped {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	for _, c := range plan.Cycles {
		fmt.Fprintf(w, "%s dependency cycle: %s\n", markWarn, c)
	}
	for _, t := range plan.Tools {
		if !t.Available {
			fmt.Fprintf(w, "%s %s not found on PATH; search paths will not be updated\n", markWarn, t.Name)
		}
	}
}

// progress prints one line per finished or failed package. Intermediate
// steps are shown when verbose is set.
func progress(verbose bool) installer.ProgressFunc {
	return func(w io.Writer, step, pkg string, err error) {
		switch {
		case err != nil:
			fmt.Fprintf(w, "  %s %s: %s failed: %v\n", markFail, pkg, step, err)
		case step == installer.StepInstalled:
			fmt.Fprintf(w, "  %s %s\n", markOK, pkg)
		case verbose:
			fmt.Fprintf(w, "    %s %s\n", step, pkg)
		}
	}
}
