// Package config holds the driver-level toggles the core's CLI
// surrounds it with, grounded on the teacher's pkg/config.Config — trimmed
// down to what this compiler's CLI actually exposes: color, strict mode,
// and the output destination.
package config

// Config holds the settings cmd/aslc threads through one compilation.
type Config struct {
	// Color enables ANSI-colored diagnostic output. Default is to
	// auto-detect via the output stream (see cmd/aslc), but a user can
	// force it on or off.
	Color bool

	// Strict makes any diagnostic produce a non-zero exit from cmd/aslc;
	// this is the default behavior per §6. Callers that only want the
	// diagnostics surfaced without failing a build (e.g. the -lenient
	// flag) turn it off.
	Strict bool

	// OutputPath is where the emitted program is written; empty means
	// standard output.
	OutputPath string
}

// Default returns the baseline configuration: color auto-detected by the
// caller, strict mode on, output to standard output.
func Default() Config {
	return Config{Strict: true}
}
