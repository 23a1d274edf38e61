// Program lazylangc reads a lazylang source file, runs it through the
// lexer, parser, semantic analyzer, and code generator, then shells
// out to a C compiler to produce a binary.
//
// Usage: lazylangc <source.lz> [<c-output-path> [<binary-output-path>]]
//
// Flags are registered via pborman/getopt. stop = os.Exit is
// overridable so exit paths can be tested, with a single fatal helper
// where a non-nil error is printed and the process exits 1.
package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/pborman/getopt"

	"github.com/chmenegatti/lazylang/pkg/codegen"
	"github.com/chmenegatti/lazylang/pkg/parser"
	"github.com/chmenegatti/lazylang/pkg/sema"
)

var stop = os.Exit

const (
	defaultCOutput   = "lazylang_out.c"
	defaultBinOutput = "lazylang_out"
)

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	stop(1)
}

func main() {
	var help bool
	var keepC bool
	getopt.BoolVarLong(&help, "help", '?', "display help")
	getopt.BoolVarLong(&keepC, "keep-c", 0, "kept for interface stability; the generated .c file is never deleted")
	getopt.SetParameters("<source.lz> [<c-output-path> [<binary-output-path>]]")

	if err := getopt.Getopt(nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		getopt.PrintUsage(os.Stderr)
		stop(1)
		return
	}

	if help {
		getopt.CommandLine.PrintUsage(os.Stderr)
		stop(0)
		return
	}

	args := getopt.Args()
	if len(args) < 1 {
		getopt.CommandLine.PrintUsage(os.Stderr)
		stop(1)
		return
	}

	sourcePath := args[0]
	cOutput := defaultCOutput
	if len(args) > 1 {
		cOutput = args[1]
	}
	binOutput := defaultBinOutput
	if len(args) > 2 {
		binOutput = args[2]
	}

	run(sourcePath, cOutput, binOutput)
}

func run(sourcePath, cOutput, binOutput string) {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		fatal(err)
		return
	}

	prog, err := parser.Parse(string(src), sourcePath)
	if err != nil {
		fatal(err)
		return
	}
	fmt.Printf("Parsed %d import(s) and %d declaration(s)\n", len(prog.Imports), len(prog.Decls))

	if err := sema.Analyze(prog); err != nil {
		fatal(err)
		return
	}
	fmt.Println("Semantic analysis completed successfully")

	cText, err := codegen.Generate(prog)
	if err != nil {
		fatal(err)
		return
	}
	if err := os.WriteFile(cOutput, []byte(cText), 0o644); err != nil {
		fatal(err)
		return
	}
	fmt.Printf("Code generation completed: %s -> %s\n", cOutput, binOutput)

	if err := compile(cOutput, binOutput); err != nil {
		fatal(err)
		return
	}
}

// compile invokes clang, falling back to cc.
func compile(cOutput, binOutput string) error {
	runtimeSrc := "src/runtime/runtime.c"
	for _, cc := range []string{"clang", "cc"} {
		path, err := exec.LookPath(cc)
		if err != nil {
			continue
		}
		cmd := exec.Command(path, "-std=c11", "-Wall", "-Wextra", cOutput, runtimeSrc, "-o", binOutput)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
	return fmt.Errorf("no C compiler found: tried clang, cc")
}
