// debug dumps the token stream or the AST of one .vd file, for chasing
// lexer and parser problems without running the whole build.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/veridec/internal/compiler"
	"github.com/robert-at-pretension-io/veridec/internal/diag"
	"github.com/robert-at-pretension-io/veridec/internal/lexer"
)

func main() {
	tokens := flag.Bool("tokens", false, "print the token stream instead of the AST")
	tree := flag.Bool("tree", false, "print the AST in its compact String() form instead of JSON")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: debug [-tokens | -tree] <file.vd>")
		os.Exit(1)
	}
	path := flag.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	src := string(data)

	if *tokens {
		toks, errs := lexer.Tokenize(src)
		for _, tok := range toks {
			line, col := diag.Locate(src, tok.Span.Start)
			fmt.Printf("%4d:%-3d %-14s %q\n", line, col, tok.Kind, tok.Text)
		}
		for _, e := range errs {
			line, col := diag.Locate(src, e.Span.Start)
			fmt.Printf("%4d:%-3d error: %s\n", line, col, e.Error())
		}
		if len(errs) > 0 {
			os.Exit(1)
		}
		return
	}

	u := compiler.Parse(path, src)
	if !u.OK() {
		f := diag.NewFormatter(os.Stderr, false)
		f.AddSource(path, src)
		f.FormatAll(u.Diagnostics)
		os.Exit(1)
	}

	if *tree {
		fmt.Println(u.Module.String())
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(u.Module); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding AST: %v\n", err)
		os.Exit(1)
	}
}
