// Command aslc is the CLI driver around the core: read source file, run
// the three semantic passes, print the emitted program or diagnostics.
// Everything here — argument parsing, file I/O, color auto-detection, the
// -v stage banners — is explicitly out of scope for the core
// specification (§1), but a complete repository still needs a runnable
// entry point, grounded on the shape of the teacher's cmd/gbc/main.go
// pipeline: read input, configure, compile, report.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/usoler/asl/pkg/compiler"
	"github.com/usoler/asl/pkg/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("aslc", flag.ContinueOnError)
	outputPath := fs.String("o", "", "write the emitted program to this path instead of standard output")
	forceColor := fs.Bool("color", false, "force ANSI-colored diagnostics even when stderr isn't a terminal")
	noColor := fs.Bool("no-color", false, "disable ANSI-colored diagnostics")
	verbose := fs.Bool("v", false, "print one line per pipeline stage as it runs")
	lenient := fs.Bool("lenient", false, "exit 0 even when diagnostics were printed")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: aslc [-o file] [-color|-no-color] [-v] [-lenient] <source.asl>")
		return 2
	}

	cfg := config.Default()
	cfg.OutputPath = *outputPath
	cfg.Color = term.IsTerminal(int(os.Stderr.Fd()))
	if *forceColor {
		cfg.Color = true
	}
	if *noColor {
		cfg.Color = false
	}
	if *lenient {
		cfg.Strict = false
	}

	source, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "aslc: %v\n", err)
		return 1
	}

	opts := compiler.Options{Color: cfg.Color}
	if *verbose {
		opts.Verbose = os.Stderr
	}
	result, err := compiler.Compile(string(source), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "aslc: %v\n", err)
		return 1
	}
	if !result.OK {
		fmt.Fprint(os.Stderr, result.Diagnostics)
		if cfg.Strict {
			return 1
		}
		return 0
	}

	rendered := result.Program.Render()
	if cfg.OutputPath == "" {
		fmt.Print(rendered)
		return 0
	}
	if err := os.WriteFile(cfg.OutputPath, []byte(rendered), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "aslc: %v\n", err)
		return 1
	}
	return 0
}
