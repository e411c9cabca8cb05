package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// InteractiveSession runs dashboard commands from a prompt.
type InteractiveSession struct {
	reader *bufio.Reader
	out    io.Writer
	// newRoot builds a fresh command tree per line so flags never leak
	// between commands.
	newRoot func() *cobra.Command
}

func NewInteractiveSession(in io.Reader, out io.Writer, newRoot func() *cobra.Command) *InteractiveSession {
	return &InteractiveSession{
		reader:  bufio.NewReader(in),
		out:     out,
		newRoot: newRoot,
	}
}

// Start reads commands until exit or end of input.
func (s *InteractiveSession) Start(ctx context.Context) error {
	s.showWelcome()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(s.out, "📊 TradingAgents> ")

		input, err := s.reader.ReadString('\n')
		if err == io.EOF && strings.TrimSpace(input) == "" {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("read input: %w", err)
		}

		parts := strings.Fields(input)
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "exit", "quit", "q":
			fmt.Fprintln(s.out, "👋 Bye!")
			return nil
		case "help", "h", "?":
			s.showHelp()
		case "interactive", "serve", "translate":
			fmt.Fprintf(s.out, "❌ %s is not available from the prompt\n", parts[0])
		default:
			s.run(ctx, parts)
		}
		fmt.Fprintln(s.out)
	}
}

func (s *InteractiveSession) run(ctx context.Context, args []string) {
	root := s.newRoot()
	root.SetArgs(args)
	root.SetOut(s.out)
	root.SetErr(s.out)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(s.out, "❌ %v\n", err)
		if hint := ErrorHint(err); hint != "" {
			fmt.Fprintf(s.out, "💡 %s\n", hint)
		}
	}
}

func (s *InteractiveSession) showWelcome() {
	fmt.Fprintln(s.out, "╔════════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(s.out, "║                   🚀 TradingAgents %-8s                    ║\n", Version)
	fmt.Fprintln(s.out, "║               Analysis dashboard and report tools              ║")
	fmt.Fprintln(s.out, "╚════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "💡 Type 'help' for commands, 'exit' to leave.")
	fmt.Fprintln(s.out)
}

func (s *InteractiveSession) showHelp() {
	fmt.Fprintln(s.out, "📚 Commands")
	fmt.Fprintln(s.out, "═══════════════════════════════════════════════════════════════")
	fmt.Fprintln(s.out, "  tickers                         - List analysed tickers")
	fmt.Fprintln(s.out, "  report [TICKER] [DATE]          - Show an analysis")
	fmt.Fprintln(s.out, "  history TICKER                  - Decision history")
	fmt.Fprintln(s.out, "  backtest TICKER [--capital N]   - Replay decisions")
	fmt.Fprintln(s.out, "  compare [TICKER...]             - Compare backtests")
	fmt.Fprintln(s.out, "  quote | news | reddit TICKER    - Live market and social data")
	fmt.Fprintln(s.out, "  alerts list | check | add       - Alerts")
	fmt.Fprintln(s.out, "  portfolio show | add | remove   - Portfolio")
	fmt.Fprintln(s.out, "  export KIND --format F          - Export data")
	fmt.Fprintln(s.out, "  settings show | set KEY VALUE   - Dashboard settings")
	fmt.Fprintln(s.out, "  exit                            - Leave the prompt")
}

func newInteractiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Run dashboard commands from an interactive prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			return NewInteractiveSession(os.Stdin, os.Stdout, NewRootCmd).Start(commandContext(cmd))
		},
	}
}
