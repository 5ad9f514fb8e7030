package cmd

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/opal-lang/opal/frontend/diag"
	"github.com/opal-lang/opal/frontend/texpr"
	"github.com/opal-lang/opal/internal/log"
	"github.com/spf13/cobra"
)

var EvalCmd = &cobra.Command{
	Use:          "eval [expr]...",
	Short:        "Evaluate type expressions",
	Long:         "Evaluate type expressions against a shared class hierarchy.\nLines read with --file may also declare classes, e.g. \"class Foo extends Bar\".",
	RunE:         runEval,
	SilenceUsage: true,
}

var (
	evalFile     *string
	evalVerify   *bool
	evalLogLevel *int
)

func init() {
	evalFile = EvalCmd.Flags().StringP("file", "f", "", "read declarations and expressions from a file, one per line")
	evalVerify = EvalCmd.Flags().Bool("verify", false, "re-check every meet for commutativity and lattice symmetry")
	evalLogLevel = EvalCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
}

func runEval(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*evalLogLevel))

	env := texpr.NewEnv()
	env.Ctx.SetVerify(*evalVerify)

	failed := false
	if *evalFile != "" {
		f, err := os.Open(*evalFile)
		if err != nil {
			return fmt.Errorf("could not open input file: %w", err)
		}
		defer func() { _ = f.Close() }()
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if !evalOne(env, sc.Text()) {
				failed = true
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("could not read input file: %w", err)
		}
	}
	for _, arg := range args {
		if !evalOne(env, arg) {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("some expressions did not evaluate")
	}
	return nil
}

func evalOne(env *texpr.Env, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return true
	}
	t, errs := env.EvalLine(line)
	if errs.HasError() {
		for _, e := range errs.Errors() {
			_, _ = fmt.Fprintln(os.Stderr, diag.FormatWithCode(e))
		}
		return false
	}
	if t != nil {
		fmt.Println(t)
	}
	return true
}
