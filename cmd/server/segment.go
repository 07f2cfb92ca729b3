// cmd/server/segment.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/rules"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

var segmentCmd = &cobra.Command{
	Use:   "segment <rules.yaml>",
	Short: "Materialize an audience group from a YAML rule file",
	Long: `Compiles the rule set in the given file and stores the matching customers
as a new audience group. Use "-" to read the rules from stdin.

Example file:

  rules:
    - field: totalSpend
      operator: ">"
      value: 10000
      useType: AND
    - field: visits
      operator: "<"
      value: 3
      useType: AND`,
	Args: cobra.ExactArgs(1),
	RunE: runSegment,
}

var segmentDryRun bool

func init() {
	segmentCmd.Flags().BoolVar(&segmentDryRun, "dry-run", false, "compile the rules and print the generated filter without touching the store")
}

// RuleFile is the on-disk shape of a rule set.
type RuleFile struct {
	Rules []model.Rule `yaml:"rules"`
}

func loadRuleFile(r io.Reader) ([]model.Rule, error) {
	var f RuleFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode rule file: %w", err)
	}
	return f.Rules, nil
}

func runSegment(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	rs, err := loadRuleFile(in)
	if err != nil {
		return err
	}
	pred, err := rules.Compile(rs)
	if err != nil {
		return err
	}

	if segmentDryRun {
		where, params := rules.SQL(pred)
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
			"where":  where,
			"params": params,
		})
	}

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	repos, closeStore, err := openStore(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := &service.AudienceService{
		CustomerRepo: repos.Customers,
		AudienceRepo: repos.Audiences,
		Log:          log,
	}
	res, err := svc.Materialize(cmd.Context(), pred)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
