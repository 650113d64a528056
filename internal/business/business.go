// Package business holds what the customer-service and marketing modules
// share: stage names, the module listing and the not-implemented sentinel.
package business

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotImplemented is returned by operations that exist as scaffolding only.
var ErrNotImplemented = errors.New("not implemented")

// Stage is one named step of a module workflow.
type Stage string

// Module is a business module exposing its static workflow.
type Module struct {
	Name     string
	Workflow []Stage
}

// NotImplemented wraps ErrNotImplemented with the module and operation name.
func NotImplemented(module, op string) error {
	return fmt.Errorf("%s: %s: %w", module, op, ErrNotImplemented)
}

// Format renders modules as plain text, one stage per line.
func Format(mods []Module) string {
	var b strings.Builder
	for i, m := range mods {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Name)
		b.WriteString(":\n")
		for n, s := range m.Workflow {
			fmt.Fprintf(&b, "  %d. %s\n", n+1, s)
		}
	}
	return b.String()
}
