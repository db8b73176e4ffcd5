package installer

import (
	"io"

	"github.com/pkgr-labs/pkgr/internal/manifest"
)

// ToolStatus represents whether an external tool used during installs is
// available on the system.
type ToolStatus struct {
	Name      string
	Available bool
}

// InstallPlan summarizes what will be installed.
type InstallPlan struct {
	// Packages are in install order, already-installed packages removed.
	Packages []*manifest.Package
	// Skipped are resolved packages whose receipt records the same archive.
	Skipped []*manifest.Package
	// Cycles describes dependency cycles met while resolving.
	Cycles []string
	// Tools reports the relocation tools the plan may need.
	Tools []ToolStatus
}

// InstallResult captures the outcome of an install operation.
type InstallResult struct {
	Installed int
	Skipped   int
	Files     int
	Warnings  []string
}

// ConfirmFunc is called to confirm installation. Returns true to proceed.
type ConfirmFunc func(plan *InstallPlan) (bool, error)

// ProgressFunc is called to report progress during installation. step is
// one of the Step* constants; err is set when the step failed.
type ProgressFunc func(w io.Writer, step, pkg string, err error)

// Install steps reported to ProgressFunc.
const (
	StepFetch     = "fetch"
	StepVerify    = "verify"
	StepExtract   = "extract"
	StepRelocate  = "relocate"
	StepCopy      = "copy"
	StepInstalled = "installed"
)
