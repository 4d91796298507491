// Command attackmap maps a threat-intelligence report to MITRE ATT&CK
// techniques and writes the result as JSON, CSV, Markdown, or an ATT&CK
// Navigator layer.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
