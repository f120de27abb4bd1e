package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/schemamemo/internal/lang"
	"github.com/DeusData/schemamemo/internal/parser"
	"github.com/DeusData/schemamemo/internal/syntax"
)

// raw switches to the unlowered tree-sitter tree, including anonymous nodes.
var raw bool

// ast_debug prints the lowered syntax tree of each file argument, or of a
// built-in sample when run without arguments. --raw prints the tree-sitter
// tree instead.
func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "--raw" {
		raw = true
		args = args[1:]
	}
	if len(args) == 0 {
		sample := []byte("export const User = _buildZodSchema(\"k\", () => { return z.object({ name: z.string() }); });\nconst Post = z.object({ tags: z.array(z.string()) }).strict();\n")
		if err := dump("sample.ts", lang.TypeScript, sample); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}

	status := 0
	for _, path := range args {
		l, ok := lang.LanguageForExtension(filepath.Ext(path))
		if !ok {
			fmt.Fprintf(os.Stderr, "%s: unsupported extension\n", path)
			status = 1
			continue
		}
		source, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			status = 1
			continue
		}
		if err := dump(path, l, source); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			status = 1
		}
	}
	os.Exit(status)
}

func dump(path string, l lang.Language, source []byte) error {
	if raw {
		return dumpRaw(path, l, source)
	}
	tree, err := syntax.Parse(l, path, source)
	if err != nil {
		return err
	}
	fmt.Printf("=== %s (%s) ===\n", path, l)
	if tree.HasError {
		fmt.Println("(tree contains syntax errors)")
	}
	tree.Dump(os.Stdout, tree.Root)
	return nil
}

func dumpRaw(path string, l lang.Language, source []byte) error {
	tree, err := parser.Parse(l, source)
	if err != nil {
		return err
	}
	defer tree.Close()
	fmt.Printf("=== %s (%s, raw) ===\n", path, l)
	parser.Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		depth := 0
		for p := n.Parent(); p != nil; p = p.Parent() {
			depth++
		}
		text := parser.NodeText(n, source)
		if len(text) > 60 {
			text = text[:60] + "..."
		}
		fmt.Printf("%s%s %q\n", strings.Repeat("  ", depth), n.Kind(), text)
		return true
	})
	return nil
}
