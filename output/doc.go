// Package output serializes mapping results as JSON, CSV, Markdown, and
// ATT&CK Navigator layers. Writers take an io.Writer; file naming and
// creation belong to the caller.
package output
