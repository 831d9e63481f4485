// Package display decides between human and machine-readable command
// output.
package display

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ShouldOutputJSON determines if a command should emit JSON instead of
// rendered tables. An explicit --json flag wins; otherwise a
// non-terminal stdout (a pipe into a script or notebook) selects JSON.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return !term.IsTerminal(int(os.Stdout.Fd()))
	}

	if cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}
	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	return !term.IsTerminal(int(os.Stdout.Fd()))
}

// MarshalJSON marshals compactly when stdout is piped, pretty when a
// human is reading it.
func MarshalJSON(v interface{}) ([]byte, error) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// OutputJSON marshals and prints v using MarshalJSON.
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
