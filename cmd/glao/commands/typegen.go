package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/GLAO/sym"
	"github.com/teranos/GLAO/typegen"
)

// Default packages to generate types from
var defaultPackages = []string{
	"github.com/teranos/GLAO/stats",
	"github.com/teranos/GLAO/budget",
}

var (
	typegenOutput   string
	typegenPackages []string
)

// TypegenCmd represents the typegen command
var TypegenCmd = &cobra.Command{
	Use:   "typegen",
	Short: sym.Typegen + " Generate Python bindings from Go source",
	Long: sym.Typegen + ` typegen — Python dataclass generation

Parses Go source code and generates Python dataclasses matching the JSON
report schema, so analysis notebooks load reports with typed access. It
handles:
  - Struct types → @dataclass definitions
  - String aliases with consts → Literal unions
  - JSON tags for field naming
  - Pointer and omitempty fields as Optional with a None default
  - time.Time as str (RFC 3339)

Examples:
  glao typegen                         # Generate to stdout
  glao typegen --output py/glao_types.py
  glao typegen --packages budget       # Specific package only`,
	RunE: runTypegen,
}

func init() {
	TypegenCmd.Flags().StringVarP(&typegenOutput, "output", "o", "", "Output file (default: stdout)")
	TypegenCmd.Flags().StringSliceVarP(&typegenPackages, "packages", "p", nil, "Packages to process (default: stats, budget)")
}

func runTypegen(cmd *cobra.Command, args []string) error {
	pkgs := typegenPackages
	if len(pkgs) == 0 {
		pkgs = defaultPackages
	}

	// Expand short package names to full import paths
	for i, pkg := range pkgs {
		if !strings.HasPrefix(pkg, "github.com/") {
			pkgs[i] = "github.com/teranos/GLAO/" + pkg
		}
	}

	results := make([]*typegen.Result, 0, len(pkgs))
	for _, pkg := range pkgs {
		result, err := typegen.GenerateFromPackage(pkg)
		if err != nil {
			return fmt.Errorf("failed to generate types for %s: %w", pkg, err)
		}
		results = append(results, result)
	}

	output := typegen.GenerateFile(results...)

	if typegenOutput == "" {
		fmt.Println(output)
		return nil
	}

	if dir := filepath.Dir(typegenOutput); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(typegenOutput, []byte(output), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", typegenOutput, err)
	}
	fmt.Printf("Generated %s from %s\n", typegenOutput, strings.Join(pkgs, ", "))
	return nil
}
