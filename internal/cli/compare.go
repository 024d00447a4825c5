package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"github.com/agenthands/snapdiff/internal/core"
	"github.com/agenthands/snapdiff/internal/core/model"
	"github.com/agenthands/snapdiff/internal/observability"
)

func newCompareCommand() *cobra.Command {
	var requestPath, output string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare projects against a baseline",
		Example: `  snapdiff compare -r request.json
  snapdiff compare -r request.yaml -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req model.CompareRequest
			if err := readRequest(requestPath, &req); err != nil {
				return err
			}

			cfg := configFrom(cmd)
			graph, closeGraph, err := openGraph(cfg)
			if err != nil {
				return err
			}
			defer closeGraph()

			engine := core.Build(cfg, graph, observability.NewMetrics())
			resp := engine.Compare(cmd.Context(), req)

			if err := renderCompare(cmd.OutOrStdout(), resp, output); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s: %s", resp.Code, resp.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "Comparison request file (JSON or YAML)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table|json)")
	_ = cmd.MarkFlagRequired("request")
	_ = cmd.RegisterFlagCompletionFunc("output", outputCompletion)
	return cmd
}

func newValidateCommand() *cobra.Command {
	var requestPath, output string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that views belong to the same document and view type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req model.ContextRequest
			if err := readRequest(requestPath, &req); err != nil {
				return err
			}

			engine := core.Build(configFrom(cmd), nil, observability.NewMetrics())
			resp := engine.ValidateContext(cmd.Context(), req)

			if err := renderContext(cmd.OutOrStdout(), resp, output); err != nil {
				return err
			}
			if !resp.OK {
				return fmt.Errorf("%s: %s", resp.Code, resp.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&requestPath, "request", "r", "", "Context-validation request file (JSON or YAML)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format (table|json)")
	_ = cmd.MarkFlagRequired("request")
	_ = cmd.RegisterFlagCompletionFunc("output", outputCompletion)
	return cmd
}

func outputCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"table", "json"}, cobra.ShellCompDirectiveNoFileComp
}

// readRequest decodes a JSON or YAML request file into v. YAML goes through a
// generic tree so the json field names apply to both.
func readRequest(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read request: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var tree interface{}
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("failed to parse request: %w", err)
		}
		if data, err = json.Marshal(tree); err != nil {
			return fmt.Errorf("failed to convert request: %w", err)
		}
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}
	return nil
}
