package fieldmap

import (
	"errors"
	"fmt"
	"log/slog"
)

// Diagnostics collects the warnings and errors raised by one setup stage.
// Stages never stop at the first problem, so a single run reports everything
// that needs fixing in the configuration.
type Diagnostics struct {
	Warnings []string
	Errors   []error
}

func (d *Diagnostics) warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) fail(err error) {
	d.Errors = append(d.Errors, err)
}

// OK reports whether no errors were recorded. Warnings do not count.
func (d *Diagnostics) OK() bool {
	return d == nil || len(d.Errors) == 0
}

// Err joins the recorded errors, or returns nil.
func (d *Diagnostics) Err() error {
	if d == nil {
		return nil
	}
	return errors.Join(d.Errors...)
}

// Merge appends other's warnings and errors to d.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.Warnings = append(d.Warnings, other.Warnings...)
	d.Errors = append(d.Errors, other.Errors...)
}

// Messages returns the error messages in order.
func (d *Diagnostics) Messages() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Errors))
	for _, err := range d.Errors {
		out = append(out, err.Error())
	}
	return out
}

// Log writes every warning and error to logger.
func (d *Diagnostics) Log(logger *slog.Logger, stage string) {
	if d == nil || logger == nil {
		return
	}
	for _, w := range d.Warnings {
		logger.Warn(w, "stage", stage)
	}
	for _, err := range d.Errors {
		logger.Error(err.Error(), "stage", stage)
	}
}
