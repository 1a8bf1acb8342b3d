package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentflow/agentflow/pkg/instruction"
	"github.com/agentflow/agentflow/pkg/workflow"
)

func newRunCommand(version string) *cobra.Command {
	var (
		inputFile string
		inputs    []string
	)

	cmd := &cobra.Command{
		Use:   "run <workflow-file>",
		Short: "Execute a workflow definition",
		Long: `Execute a workflow definition from a JSON or YAML file and wait
for it to finish. The run is recorded in the store like any server-side
run: status, per-instruction events, and audit entries.`,
		Example: `  # Run a workflow definition
  agentflow run research_paper.json

  # Run with input values
  agentflow run research_paper.json --input topic=climate --input depth=3

  # Run with a JSON input document
  agentflow run pipeline.yaml --input-file input.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(args[0])
			if err != nil {
				return err
			}

			input, err := collectInput(inputFile, inputs)
			if err != nil {
				return err
			}

			app, err := newApp(cmd.Context(), version)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.runner.Execute(cmd.Context(), def, input)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				fmt.Printf("Run:      %s\n", res.RunID)
				fmt.Printf("Workflow: %s\n", res.Workflow)
				fmt.Printf("Status:   %s\n", res.Status)
				fmt.Printf("Duration: %s\n", res.Duration)
				if res.Error != "" {
					fmt.Printf("Error:    %s\n", res.Error)
				}
			}

			if res.Status == instruction.StatusFailed {
				return fmt.Errorf("workflow %s failed", def.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input-file", "f", "", "JSON file with input values")
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "input values (key=value)")

	return cmd
}

// loadDefinition reads a workflow definition from a JSON or YAML file.
func loadDefinition(path string) (*workflow.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var def workflow.Definition
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse workflow file %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("failed to parse workflow file %s: %w", path, err)
		}
	}
	return &def, nil
}

// collectInput merges an optional JSON input document with key=value
// overrides from the command line.
func collectInput(inputFile string, pairs []string) (map[string]any, error) {
	input := make(map[string]any)

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, fmt.Errorf("failed to parse input file %s: %w", inputFile, err)
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}
		input[key] = value
	}

	return input, nil
}
