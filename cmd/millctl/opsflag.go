package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/morenoc/imagemill/internal/imageproc"
	"github.com/morenoc/imagemill/internal/protocol"
)

// opsValue is a repeatable pflag value collecting operation specs. Accepted
// forms are a bare operation name ("blur", "grayscale", ...) or
// "resize=WIDTHxHEIGHT".
type opsValue struct {
	specs []protocol.OperationSpec
}

var _ pflag.Value = (*opsValue)(nil)

func (v *opsValue) String() string {
	parts := make([]string, 0, len(v.specs))
	for _, spec := range v.specs {
		if spec.Type == string(imageproc.OpResize) {
			parts = append(parts, fmt.Sprintf("%s=%dx%d", spec.Type, spec.Width, spec.Height))
			continue
		}
		parts = append(parts, spec.Type)
	}

	return strings.Join(parts, ",")
}

func (v *opsValue) Set(s string) error {
	name, dims, hasDims := strings.Cut(s, "=")

	spec := protocol.OperationSpec{Type: strings.TrimSpace(name)}

	if hasDims {
		if spec.Type != string(imageproc.OpResize) {
			return fmt.Errorf("operation %q does not take dimensions", spec.Type)
		}

		if _, err := fmt.Sscanf(dims, "%dx%d", &spec.Width, &spec.Height); err != nil {
			return fmt.Errorf("invalid dimensions %q, want WIDTHxHEIGHT", dims)
		}
	}

	// Validate eagerly so a typo fails the command instead of being
	// silently dropped by the server.
	if _, err := imageproc.ParseOperation(spec.Type, spec.Width, spec.Height); err != nil {
		return err
	}

	v.specs = append(v.specs, spec)

	return nil
}

func (v *opsValue) Type() string {
	return "operation"
}
