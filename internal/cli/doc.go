// Package cli defines the Cobra command tree for the pkgr CLI. Each file
// in this package registers one or a few related top-level commands (index,
// install, relocate, etc.) with the root command. Command implementations
// delegate to internal packages for the package-management logic and only
// handle flag parsing, I/O formatting, and user interaction.
package cli
