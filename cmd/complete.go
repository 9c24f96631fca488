package cmd

import (
	"flag"

	"github.com/etnz/tradesim/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Complete answers shell completion requests and exits, it returns
// immediately otherwise. Install with COMP_INSTALL=1 tsim.
func Complete() {
	completion().Complete("tsim")
}

// completion describes the command line for completion.
func completion() *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flagPredictors(flag.CommandLine),
	}
	root.Flags["config"] = predict.Files("*.yaml")
	root.Flags["session"] = predict.Files("*.json")

	for _, g := range groups {
		for _, c := range g.commands {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			root.Sub[c.Name()] = &complete.Command{Flags: flagPredictors(fs), Args: argsPredictor(c)}
		}
	}
	return root
}

func flagPredictors(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[f.Name] = nil
			return
		}
		flags[f.Name] = predict.Something
	})
	return flags
}

func argsPredictor(c subcommands.Command) complete.Predictor {
	if _, ok := c.(*topicCmd); ok {
		return predict.Set(append(docs.All(), "*"))
	}
	return nil
}
