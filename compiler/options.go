package compiler

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/script-aot/errors"
)

// Environment variables read by Options.FromEnv.
const (
	EnvValidate    = "SCRIPTAOT_VALIDATE"
	EnvMaxAttempts = "SCRIPTAOT_MAX_ATTEMPTS"
	EnvDump        = "SCRIPTAOT_DUMP"
	EnvDumpFormat  = "SCRIPTAOT_DUMP_FORMAT"
)

// Options tune a Compiler.
type Options struct {
	// Dump is "stderr" or a directory receiving one listing per compiled
	// function. Empty disables dumping.
	Dump string `toml:"dump"`
	// DumpFormat is "text", "dot" or "both".
	DumpFormat string `toml:"dump-format"`
	// MaxAttempts caps the propagation walks per function. Zero uses the
	// propagator's default cap.
	MaxAttempts int `toml:"max-attempts"`
	// Validate checks the block graph invariants after construction.
	Validate bool `toml:"validate"`
}

// LoadOptions reads options from a TOML file.
func LoadOptions(path string) (Options, error) {
	var opts Options
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err,
			fmt.Sprintf("cannot read %s", path))
	}
	if err := toml.Unmarshal(data, &opts); err != nil {
		return opts, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err,
			fmt.Sprintf("parse error in %s", path))
	}
	if err := opts.check(); err != nil {
		return opts, err
	}
	return opts, nil
}

// FromEnv returns a copy of o with the SCRIPTAOT_* variables that are set
// applied on top.
func (o Options) FromEnv() (Options, error) {
	if v, ok := os.LookupEnv(EnvValidate); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return o, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, EnvValidate)
		}
		o.Validate = b
	}
	if v, ok := os.LookupEnv(EnvMaxAttempts); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return o, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, EnvMaxAttempts)
		}
		o.MaxAttempts = n
	}
	if v, ok := os.LookupEnv(EnvDump); ok {
		o.Dump = v
	}
	if v, ok := os.LookupEnv(EnvDumpFormat); ok {
		o.DumpFormat = v
	}
	return o, o.check()
}

func (o Options) check() error {
	if o.MaxAttempts < 0 {
		return errors.InvalidInput(errors.PhaseConfig, "max-attempts must not be negative")
	}
	switch o.DumpFormat {
	case "", "text", "dot", "both":
	default:
		return errors.InvalidInput(errors.PhaseConfig, "dump-format must be text, dot or both")
	}
	return nil
}
