package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/opal-lang/opal/frontend/diag"
	"github.com/opal-lang/opal/frontend/texpr"
	"github.com/opal-lang/opal/internal/log"
	"github.com/spf13/cobra"
)

var ReplCmd = &cobra.Command{
	Use:          "repl",
	Short:        "Interactively evaluate type expressions",
	RunE:         runRepl,
	SilenceUsage: true,
}

var replLogLevel *int

func init() {
	replLogLevel = ReplCmd.Flags().IntP("log-level", "l", int(slog.LevelError), "log level")
}

func runRepl(cmd *cobra.Command, args []string) error {
	log.SetLevel(slog.Level(*replLogLevel))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "opal> ",
		HistoryFile: filepath.Join(os.TempDir(), "opal-repl-history"),
	})
	if err != nil {
		return fmt.Errorf("could not start the line editor: %w", err)
	}
	defer func() { _ = rl.Close() }()

	env := texpr.NewEnv()
	for {
		line, err := rl.Readline()
		switch err {
		case nil:
		case readline.ErrInterrupt:
			continue
		case io.EOF:
			return nil
		default:
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case ":quit", ":q":
			return nil
		case ":verify on":
			env.Ctx.SetVerify(true)
			continue
		case ":verify off":
			env.Ctx.SetVerify(false)
			continue
		case ":help":
			fmt.Println("expressions:  meet(a,b) join(a,b) filter(a,b) dual(a)")
			fmt.Println("              int int:5 int[-10,10] long float:1.5 double:2.5")
			fmt.Println("              ptr:null inst:Foo:notnull:exact klass:Foo ary(int[0,10])")
			fmt.Println("              tuple(a,b) vect(float,8) narrowoop(t) const(Foo,x)")
			fmt.Println("declarations: class Foo extends Bar implements I")
			fmt.Println("              final class Baz / interface I / unloaded class U")
			fmt.Println("commands:     :verify on|off  :quit")
			continue
		}

		t, errs := env.EvalLine(line)
		if errs.HasError() {
			for _, e := range errs.Errors() {
				fmt.Println(diag.FormatWithCode(e))
			}
			continue
		}
		if t != nil {
			fmt.Println(t)
		}
	}
}
