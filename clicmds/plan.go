package clicmds

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/emicklei/dot"
	"github.com/urfave/cli/v2"

	"gitlab.com/browserstep/harness"
	"gitlab.com/browserstep/runner"
	"gitlab.com/browserstep/scenario"
)

// PlanFlags configures the plan export
func PlanFlags() []cli.Flag {
	return append(configFlags(),
		&cli.StringFlag{
			Name:  "dot",
			Usage: "export the step graph to DOT file",
			Value: "",
		},
	)
}

// Plan prints the steps each environment would run and optionally writes them
// as a DOT graph
func Plan(cliCtx *cli.Context) error {
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}
	envs, err := cfg.Select(cliCtx.StringSlice("env"))
	if err != nil {
		return err
	}

	s := scenario.AccountCreation(nil)
	printPlan(os.Stdout, s, cfg, envs)

	if fileName := cliCtx.String("dot"); fileName != "" {
		return ioutil.WriteFile(fileName, []byte(planGraph(s, cfg, envs).String()), 0644)
	}
	return nil
}

func printPlan(w io.Writer, s *runner.Scenario, cfg *harness.Config, envs []harness.Environment) {
	steps := s.Plan(cfg)
	fmt.Fprintf(w, "Scenario %q against %s\n", s.Name, cfg.URL)
	for _, env := range envs {
		fmt.Fprintf(w, "\n%s:\n", env.String())
		for i, step := range steps {
			fmt.Fprintf(w, "  %2d. %s\n", i+1, step)
		}
	}
}

func planGraph(s *runner.Scenario, cfg *harness.Config, envs []harness.Environment) *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "LR")
	steps := s.Plan(cfg)
	for _, env := range envs {
		sub := g.Subgraph(env.String())
		var prev dot.Node
		for i, step := range steps {
			current := sub.Node(env.Name + "/" + strconv.Itoa(i)).Attr("label", step)
			if i > 0 {
				g.Edge(prev, current)
			}
			prev = current
		}
	}
	return g
}
