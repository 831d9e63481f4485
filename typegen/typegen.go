// Package typegen generates Python dataclass definitions from Go source
// code, so analysis notebooks can load budget reports with typed access
// instead of raw dict indexing.
package typegen

import (
	"fmt"
	"go/ast"
	"go/token"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Result holds the generated Python for all types in a package.
type Result struct {
	// Types maps Go type names to their Python class definitions
	Types map[string]string

	// PackageName is the Go package that was processed
	PackageName string

	// needsOptional tracks whether the generated file imports Optional
	needsOptional bool
}

// TypeMapping defines how Go types map to Python types
var TypeMapping = map[string]string{
	"string":    "str",
	"int":       "int",
	"int8":      "int",
	"int16":     "int",
	"int32":     "int",
	"int64":     "int",
	"uint":      "int",
	"uint8":     "int",
	"uint16":    "int",
	"uint32":    "int",
	"uint64":    "int",
	"float32":   "float",
	"float64":   "float",
	"bool":      "bool",
	"time.Time": "str", // RFC 3339 in the JSON report
}

// GenerateFromPackage parses a Go package and generates Python dataclasses
// for all exported struct types.
//
// Import path should be a full Go import path like
// "github.com/teranos/GLAO/budget".
func GenerateFromPackage(importPath string) (*Result, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo,
	}

	pkgs, err := packages.Load(cfg, importPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load package %s: %w", importPath, err)
	}

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", importPath)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors)
	}

	result := &Result{
		Types:       make(map[string]string),
		PackageName: pkg.Name,
	}

	for _, file := range pkg.Syntax {
		processFile(file, result)
	}

	return result, nil
}

// processFile extracts type definitions from a Go AST file
func processFile(file *ast.File, result *Result) {
	typeAliases := make(map[string]string) // typeName -> underlying type
	constValues := make(map[string][]string)

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.GenDecl:
			if node.Tok == token.CONST {
				processConstBlock(node, constValues)
			}
		case *ast.TypeSpec:
			if !node.Name.IsExported() {
				return true
			}

			switch t := node.Type.(type) {
			case *ast.StructType:
				result.Types[node.Name.Name] = generateDataclass(node.Name.Name, t, result)

			case *ast.Ident:
				// Type alias like: type Policy string
				typeAliases[node.Name.Name] = t.Name
			}
		}
		return true
	})

	// String aliases with const values become Literal unions
	for typeName, underlyingType := range typeAliases {
		values, hasConsts := constValues[typeName]
		if hasConsts && len(values) > 0 && underlyingType == "string" {
			result.Types[typeName] = generateLiteral(typeName, values)
		}
	}
}

// processConstBlock extracts const values grouped by their type
func processConstBlock(decl *ast.GenDecl, constValues map[string][]string) {
	var currentType string

	for _, spec := range decl.Specs {
		valueSpec, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}

		if valueSpec.Type != nil {
			if ident, ok := valueSpec.Type.(*ast.Ident); ok {
				currentType = ident.Name
			}
		}
		if currentType == "" {
			continue
		}

		for _, value := range valueSpec.Values {
			if lit, ok := value.(*ast.BasicLit); ok && lit.Kind == token.STRING {
				strValue := strings.Trim(lit.Value, `"`)
				constValues[currentType] = append(constValues[currentType], strValue)
			}
		}
	}
}

// generateLiteral creates a Python Literal alias from const values
func generateLiteral(name string, values []string) string {
	var parts []string
	for _, v := range values {
		parts = append(parts, fmt.Sprintf("'%s'", v))
	}
	return fmt.Sprintf("%s = Literal[%s]", name, strings.Join(parts, ", "))
}

// generateDataclass creates a Python dataclass from a Go struct. Fields
// are ordered as declared, with defaulted (optional) fields moved last so
// the dataclass constructor stays valid.
func generateDataclass(name string, structType *ast.StructType, result *Result) string {
	var required, optional []string

	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 {
			// embedded field
			continue
		}

		for _, fieldName := range field.Names {
			if !fieldName.IsExported() {
				continue
			}

			tagInfo := parseFieldTags(field.Tag)
			if tagInfo.Skip {
				continue
			}

			pyName := tagInfo.JSONName
			if pyName == "" {
				pyName = snakeCase(fieldName.Name)
			}

			isPointer := isPointerType(field.Type)
			pyType := goTypeToPy(field.Type)
			if isPointer || tagInfo.Omitempty {
				result.needsOptional = true
				pyType = fmt.Sprintf("Optional[%s]", pyType)
				optional = append(optional, fmt.Sprintf("    %s: %s = None", pyName, pyType))
				continue
			}
			required = append(required, fmt.Sprintf("    %s: %s", pyName, pyType))
		}
	}

	var sb strings.Builder
	sb.WriteString("@dataclass\n")
	sb.WriteString(fmt.Sprintf("class %s:\n", name))
	lines := append(required, optional...)
	if len(lines) == 0 {
		sb.WriteString("    pass")
		return sb.String()
	}
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}

// FieldTagInfo contains parsed struct tag information for Python generation
type FieldTagInfo struct {
	JSONName  string // Field name from json tag
	Omitempty bool   // Has omitempty option
	Skip      bool   // Skip this field (json:"-")
}

// parseFieldTags extracts the json tag from a struct field tag
func parseFieldTags(tag *ast.BasicLit) FieldTagInfo {
	info := FieldTagInfo{}

	if tag == nil {
		return info
	}

	tagValue := strings.Trim(tag.Value, "`")
	st := reflect.StructTag(tagValue)

	jsonTag := st.Get("json")
	if jsonTag != "" {
		parts := strings.Split(jsonTag, ",")
		info.JSONName = parts[0]
		if info.JSONName == "-" {
			info.Skip = true
			return info
		}
		for _, part := range parts[1:] {
			if part == "omitempty" {
				info.Omitempty = true
			}
		}
	}

	return info
}

// isPointerType checks if the AST expression represents a pointer type
func isPointerType(expr ast.Expr) bool {
	_, ok := expr.(*ast.StarExpr)
	return ok
}

// snakeCase converts an exported Go name to Python field style. Acronym
// runs stay together: TotalRMS becomes total_rms, not total_r_m_s.
func snakeCase(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			prevLower := i > 0 && (runes[i-1] < 'A' || runes[i-1] > 'Z')
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if i > 0 && (prevLower || nextLower) {
				sb.WriteByte('_')
			}
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// goTypeToPy converts a Go AST type expression to a Python type string
func goTypeToPy(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		if py, ok := TypeMapping[t.Name]; ok {
			return py
		}
		// Reference to another type in the same package. Forward
		// references are fine under `from __future__ import annotations`.
		return t.Name

	case *ast.SelectorExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			fullName := ident.Name + "." + t.Sel.Name
			if py, ok := TypeMapping[fullName]; ok {
				return py
			}
			return t.Sel.Name
		}
		return "object"

	case *ast.StarExpr:
		return goTypeToPy(t.X)

	case *ast.ArrayType:
		return "list[" + goTypeToPy(t.Elt) + "]"

	case *ast.MapType:
		return fmt.Sprintf("dict[%s, %s]", goTypeToPy(t.Key), goTypeToPy(t.Value))

	case *ast.InterfaceType:
		return "object"

	default:
		return "object"
	}
}

// GenerateFile creates a complete Python module from one or more Results.
// Literal aliases come first, then dataclasses sorted by name.
func GenerateFile(results ...*Result) string {
	var sb strings.Builder

	sb.WriteString("# AUTO-GENERATED by glao typegen - DO NOT EDIT\n")
	sb.WriteString("from __future__ import annotations\n\n")
	sb.WriteString("from dataclasses import dataclass\n")

	needsOptional, needsLiteral := false, false
	for _, r := range results {
		if r.needsOptional {
			needsOptional = true
		}
		for _, def := range r.Types {
			if strings.Contains(def, "Literal[") {
				needsLiteral = true
			}
		}
	}
	switch {
	case needsOptional && needsLiteral:
		sb.WriteString("from typing import Literal, Optional\n")
	case needsOptional:
		sb.WriteString("from typing import Optional\n")
	case needsLiteral:
		sb.WriteString("from typing import Literal\n")
	}
	sb.WriteString("\n")

	var literals, classes []string
	for _, r := range results {
		for name, def := range r.Types {
			if strings.HasPrefix(def, "@dataclass") {
				classes = append(classes, name+"\x00"+def)
			} else {
				literals = append(literals, name+"\x00"+def)
			}
		}
	}
	sort.Strings(literals)
	sort.Strings(classes)

	defs := make([]string, 0, len(literals)+len(classes))
	for _, entry := range literals {
		defs = append(defs, entry[strings.IndexByte(entry, 0)+1:])
	}
	for _, entry := range classes {
		defs = append(defs, entry[strings.IndexByte(entry, 0)+1:])
	}

	sb.WriteString(strings.Join(defs, "\n\n\n"))
	sb.WriteString("\n")

	return sb.String()
}
