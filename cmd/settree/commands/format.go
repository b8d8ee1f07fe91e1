package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/settree/internal/config/serial"
	"github.com/spf13/pflag"
)

// formatFlag is a --format flag restricted to some serial formats.
type formatFlag struct {
	value   serial.Format
	allowed []serial.Format
}

var _ pflag.Value = (*formatFlag)(nil)

func newFormatFlag(def serial.Format, allowed ...serial.Format) *formatFlag {
	return &formatFlag{value: def, allowed: allowed}
}

func (f *formatFlag) String() string { return string(f.value) }

func (f *formatFlag) Set(s string) error {
	format, err := serial.ParseFormat(s)
	if err != nil || !slices.Contains(f.allowed, format) {
		return fmt.Errorf("must be one of %s", f.names())
	}
	f.value = format
	return nil
}

func (f *formatFlag) Type() string { return "format" }

func (f *formatFlag) names() string {
	names := make([]string, len(f.allowed))
	for i, a := range f.allowed {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// register adds the flag to fs as --format and -f.
func (f *formatFlag) register(fs *pflag.FlagSet) {
	fs.VarP(f, "format", "f", "output format ("+f.names()+")")
}
