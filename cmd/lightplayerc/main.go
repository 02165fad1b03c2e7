// Command lightplayerc compiles a typed-IR shader file into one of the
// three module flavors spec §4.4 defines and either writes the result
// to disk (the object flavor) or invokes a single export and prints
// its value (the emulator/hostjit flavors), following the teacher's
// cmd/run layering of a thin main() over a testable run().
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/lightplayer/lightplayer/compiler"
)

var (
	flagTarget   string
	flagOut      string
	flagEntry    string
	flagLogLevel string
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lightplayerc <shader.json>",
		Short: "Compile a typed-IR shader to RISC-V32 and optionally run it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&flagTarget, "target", "emulator", "module flavor: hostjit, emulator, or object")
	cmd.Flags().StringVar(&flagOut, "out", "", "output path for the object flavor's linked image (required for --target=object)")
	cmd.Flags().StringVar(&flagEntry, "entry", "", "exported function to invoke after compiling (emulator/hostjit only)")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "debug, info, warn, or error")
	return cmd
}

func run(cmd *cobra.Command, path string) error {
	logger, err := newLogger(flagLogLevel, isColorTerminal(cmd))
	if err != nil {
		return err
	}
	defer logger.Sync()
	compiler.SetLogger(logger)

	target, err := parseTarget(flagTarget)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	irMod, err := decodeModule(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	mod, errs := compiler.Compile(irMod, &compiler.Config{Target: target})
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", e)
		}
		return fmt.Errorf("compile failed with %d error(s)", len(errs))
	}

	for _, name := range mod.Unresolved {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is unresolved and will trap if called\n", name)
	}

	if target == compiler.TargetObject {
		if flagOut == "" {
			return fmt.Errorf("--target=object requires --out")
		}
		if err := os.WriteFile(flagOut, mod.Object, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", flagOut, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(mod.Object), flagOut)
		return nil
	}

	if flagEntry == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "compiled %s (%d symbol(s), %d unresolved)\n", path, len(mod.Image.Symbols), len(mod.Unresolved))
		return nil
	}
	result, err := mod.Call(flagEntry)
	if err != nil {
		return fmt.Errorf("call %s: %w", flagEntry, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s() = %d\n", flagEntry, result)
	return nil
}

func parseTarget(s string) (compiler.Target, error) {
	switch s {
	case "hostjit":
		return compiler.TargetHostJIT, nil
	case "emulator":
		return compiler.TargetEmulator, nil
	case "object":
		return compiler.TargetObject, nil
	default:
		return 0, fmt.Errorf("unknown --target %q (want hostjit, emulator, or object)", s)
	}
}

func isColorTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newLogger(level string, color bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if color {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	var lvl zap.AtomicLevel
	switch level {
	case "debug":
		lvl = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		lvl = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		lvl = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = lvl
	return cfg.Build()
}
