package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Scenario is one batch question with its output file name
type Scenario struct {
	File     string `yaml:"file"`
	Question string `yaml:"question"`
}

// defaultScenarios is the built-in question set used when no scenario file is
// given.
var defaultScenarios = []Scenario{
	{File: "simple_query.txt", Question: "What are the main types of neural networks?"},
	{File: "complex_query.txt", Question: "Research transformer architectures, analyze their computational efficiency, and summarize key trade-offs."},
	{File: "memory_test.txt", Question: "What did we discuss about neural networks earlier?"},
	{File: "multi_step.txt", Question: "Find recent papers on reinforcement learning, analyze their methodologies, and identify common challenges."},
	{File: "collaborative.txt", Question: "Compare two machine-learning approaches and recommend which is better for our use case."},
}

func loadScenarios(path string) ([]Scenario, error) {
	if path == "" {
		return defaultScenarios, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read scenario file", goerr.V("path", path))
	}

	var scenarios []Scenario
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, goerr.Wrap(err, "failed to parse scenario file", goerr.V("path", path))
	}
	for i, s := range scenarios {
		if s.File == "" || s.Question == "" {
			return nil, goerr.New("scenario requires both file and question", goerr.V("index", i))
		}
	}
	return scenarios, nil
}

func scenarioCommand() *cli.Command {
	var (
		cfg          config
		outDir       string
		scenarioFile string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "out-dir",
			Usage:       "Directory to write scenario outputs",
			Value:       "outputs",
			Destination: &outDir,
		},
		&cli.StringFlag{
			Name:        "scenarios",
			Usage:       "YAML file with scenarios (file + question pairs)",
			Destination: &scenarioFile,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "scenario",
		Usage: "Run a batch of scenario questions against one shared memory",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			scenarios, err := loadScenarios(scenarioFile)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return goerr.Wrap(err, "failed to create output directory", goerr.V("dir", outDir))
			}

			mem, err := cfg.newMemoryService(ctx)
			if err != nil {
				return err
			}
			coord, err := cfg.newCoordinator(ctx, mem)
			if err != nil {
				return err
			}

			for _, s := range scenarios {
				fmt.Fprintf(c.Root().Writer, "==== Question ====\n%s\n==================\n", s.Question)

				answer, err := coord.Handle(ctx, s.Question)
				if err != nil {
					return goerr.Wrap(err, "failed to handle scenario", goerr.V("question", s.Question))
				}

				out := filepath.Join(outDir, s.File)
				if err := os.WriteFile(out, []byte(answer.Content), 0644); err != nil {
					return goerr.Wrap(err, "failed to write scenario output", goerr.V("file", out))
				}
				fmt.Fprintf(c.Root().Writer, "%s\n\n", answer.Content)
			}

			fmt.Fprintf(c.Root().Writer, "All scenarios executed. See %s/\n", outDir)
			return nil
		},
	}
}
