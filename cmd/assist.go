package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/tradesim"
	"github.com/etnz/tradesim/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

type assistCmd struct{}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "chat with the AI assistant about your portfolio" }
func (*assistCmd) Usage() string {
	return `tsim assist [<question>]

  Starts an interactive session with the AI assistant. The assistant can read
  your holdings, the available stocks and the value history. It needs a
  Gemini API key in GEMINI_API_KEY.
`
}

func (*assistCmd) SetFlags(_ *flag.FlagSet) {}

func (*assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	initialPrompt := strings.Join(f.Args(), " ")

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	return withDashboard(ctx, func(_ *app, d *tradesim.Dashboard) error {
		a := agent.New(os.Stdout, os.Stdin, agent.NewAnalyst(d), agent.NewTrader())
		a.Print = func(w io.Writer, answer string) {
			out, err := glamour.Render(answer, "auto")
			if err != nil {
				out = answer + "\n"
			}
			fmt.Fprint(w, out)
		}
		if err := a.Run(ctx, client, initialPrompt); err != nil {
			return fmt.Errorf("agent failed: %w", err)
		}
		return nil
	})
}
