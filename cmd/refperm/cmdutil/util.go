// Package cmdutil provides shared utilities for refperm commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/marmos91/refperm/internal/cli/output"
	"github.com/marmos91/refperm/internal/cli/prompt"
	"github.com/marmos91/refperm/internal/logger"
	"github.com/marmos91/refperm/pkg/config"
	"github.com/marmos91/refperm/pkg/identity"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	Output     string
	NoColor    bool
	Verbose    bool
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// NewPrinter returns a printer for the selected output format.
func NewPrinter(w io.Writer) (*output.Printer, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(w, format, !Flags.NoColor), nil
}

// PrintOutput prints data in the selected format. For table format it
// prints emptyMsg when isEmpty is set, otherwise it renders table.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, table output.TableRenderer) error {
	p, err := NewPrinter(w)
	if err != nil {
		return err
	}
	return p.PrintList(data, isEmpty, emptyMsg, table)
}

// PrintResourceWithSuccess prints successMsg for table format and the
// resource itself for JSON and YAML. Useful for create and update commands.
func PrintResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	p, err := NewPrinter(w)
	if err != nil {
		return err
	}
	if p.Format() == output.FormatTable {
		p.Success(successMsg)
		return nil
	}
	return p.Print(data)
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(w io.Writer, msg string) {
	p, err := NewPrinter(w)
	if err != nil || p.Format() != output.FormatTable {
		return
	}
	p.Success(msg)
}

// RunDeleteWithConfirmation prompts for the resource name (unless force is
// true) and runs deleteFn.
func RunDeleteWithConfirmation(w io.Writer, resourceType, name string, force bool, deleteFn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete %s '%s'?", strings.ToLower(resourceType), name), name, force)
	if err != nil {
		return HandleAbort(w, err)
	}
	if !confirmed {
		_, _ = fmt.Fprintln(w, "Aborted.")
		return nil
	}

	if err := deleteFn(); err != nil {
		return err
	}

	PrintSuccess(w, fmt.Sprintf("%s '%s' deleted successfully", resourceType, name))
	return nil
}

// HandleAbort turns a Ctrl+C abort into a message and a nil error.
func HandleAbort(w io.Writer, err error) error {
	if prompt.IsAborted(err) {
		_, _ = fmt.Fprintln(w, "\nAborted.")
		return nil
	}
	return err
}

// BoolToYesNo converts a boolean to "yes" or "no".
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
// Useful for table display where empty fields should show "-".
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// LoadConfig loads the configuration selected by --config and initializes
// the logger for a one-shot command. Logs go to stderr so they never mix
// with command output, and only warnings are shown unless --verbose is set.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(Flags.ConfigFile)
	if err != nil {
		return nil, err
	}

	logCfg := logger.Config{Level: "WARN", Format: cfg.Logging.Format, Output: cfg.Logging.Output}
	if strings.EqualFold(logCfg.Output, "stdout") {
		logCfg.Output = "stderr"
	}
	if Flags.Verbose {
		logCfg.Level = "DEBUG"
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// OpenEngine loads the configuration and builds an engine without metrics.
// The caller must Close it.
func OpenEngine(ctx context.Context) (*config.Engine, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return config.InitializeEngine(ctx, cfg, nil)
}

// ResolveUser looks username up through the engine's identity directory.
// An empty username is the anonymous caller.
func ResolveUser(ctx context.Context, e *config.Engine, username string) (*identity.User, error) {
	if username == "" {
		return identity.Anon(), nil
	}
	u, err := e.Resolver.Lookup(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return u, nil
}
