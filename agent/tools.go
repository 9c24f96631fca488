package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/tradesim"
	"github.com/etnz/tradesim/docs"
	"github.com/etnz/tradesim/renderer"
	"google.golang.org/genai"
)

const modelName = "gemini-2.5-pro"

// Portfolio is the state the tools read. *tradesim.Dashboard implements it.
type Portfolio interface {
	Portfolio() tradesim.ID
	Refresh(ctx context.Context) (*tradesim.Valuation, error)
	LoadStocks(ctx context.Context) ([]tradesim.Stock, error)
	LoadHistory(ctx context.Context) ([]tradesim.ValuePoint, error)
	Market() []tradesim.Position
}

var _ Portfolio = (*tradesim.Dashboard)(nil)

// Func is a tool without arguments returning markdown.
type Func struct {
	Name        string
	Description string
	Run         func(ctx context.Context) (string, error)
}

func (f *Func) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        f.Name,
		Description: f.Description,
		Response:    &genai.Schema{Type: genai.TypeString, Description: "A markdown report."},
	}
}

func (f *Func) Call(ctx context.Context, id string, _ map[string]any) *genai.FunctionResponse {
	out, err := f.Run(ctx)
	if err != nil {
		return failure(id, f.Name, "%v", err)
	}
	return &genai.FunctionResponse{ID: id, Name: f.Name, Response: map[string]any{"output": out}}
}

// Tools returns the functions reading p.
func Tools(p Portfolio) []*Func {
	return []*Func{
		{
			Name:        "Holdings",
			Description: "Reports the positions held in the portfolio, valued at current prices, and the portfolio total.",
			Run: func(ctx context.Context) (string, error) {
				v, err := p.Refresh(ctx)
				if err != nil {
					return "", err
				}
				return renderer.HoldingMarkdown(p.Portfolio(), v), nil
			},
		},
		{
			Name:        "Stocks",
			Description: "Lists every stock available for trading with its current price and the quantity held.",
			Run: func(ctx context.Context) (string, error) {
				if _, err := p.Refresh(ctx); err != nil {
					return "", err
				}
				if _, err := p.LoadStocks(ctx); err != nil {
					return "", err
				}
				return renderer.MarketMarkdown(p.Market()), nil
			},
		},
		{
			Name:        "History",
			Description: "Reports the value of the portfolio over time.",
			Run: func(ctx context.Context) (string, error) {
				points, err := p.LoadHistory(ctx)
				if err != nil {
					return "", err
				}
				return renderer.HistoryMarkdown(points), nil
			},
		},
	}
}

func must(s string, err error) string {
	if err != nil {
		panic(err)
	}
	return s
}

// NewAnalyst returns the expert on the user's portfolio.
func NewAnalyst(p Portfolio) *Expert {
	tools := Tools(p)
	return &Expert{
		Name:        "Analyst",
		Description: "Knows the user's portfolio: positions, their value, available stocks, and the portfolio value over time.",
		ModelName:   modelName,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{
				{Text: "You are a portfolio analyst for a stock trading simulator. Use the tools to read the user's portfolio, never guess figures. Answer in markdown."},
				{Text: must(docs.Topics("holdings", "orders"))},
			}},
			Tools: []*genai.Tool{{FunctionDeclarations: NewDeclarations(tools)}},
		},
		Library: NewLibrary(tools),
	}
}

// NewTrader returns the expert on markets and companies.
func NewTrader() *Expert {
	return &Expert{
		Name:        "Trader",
		Description: "Knows markets and companies, and searches the web for recent news.",
		ModelName:   modelName,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{
				{Text: "You are a stock market expert. Use web search for anything recent. Prices in the simulator may differ from real markets."},
			}},
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		},
	}
}

func newFacilitator(experts ...*Expert) *Expert {
	var b strings.Builder
	b.WriteString("You help the user of tsim, a stock trading simulator. Ask the experts below rather than answering from memory:\n")
	for _, e := range experts {
		fmt.Fprintf(&b, "*   %s: %s\n", e.Name, e.Description)
	}
	return &Expert{
		Name:        "Facilitator",
		Description: "Talks to the user.",
		ModelName:   modelName,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{
				{Text: b.String()},
				{Text: docs.Index()},
			}},
			Tools: []*genai.Tool{{FunctionDeclarations: NewDeclarations(experts)}},
		},
		Library: NewLibrary(experts),
	}
}
