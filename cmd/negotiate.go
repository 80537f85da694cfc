package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/chargeflex/core/grid"
	"github.com/kilianp07/chargeflex/core/negotiation"
	"github.com/kilianp07/chargeflex/core/policy"
	"github.com/kilianp07/chargeflex/core/queue"
	"github.com/kilianp07/chargeflex/infra/intent"
)

var negotiateOpts struct {
	user     string
	text     string
	startSoC int
	stressed bool
}

var negotiateCmd = &cobra.Command{
	Use:   "negotiate",
	Short: "Run one negotiation in-process and print the plan",
	RunE:  runNegotiate,
}

func init() {
	f := negotiateCmd.Flags()
	f.StringVar(&negotiateOpts.user, "user", "cli-user", "user id")
	f.StringVar(&negotiateOpts.text, "text", "", "free-text charging request")
	f.IntVar(&negotiateOpts.startSoC, "start-soc", -1, "current state of charge (negative for unknown)")
	f.BoolVar(&negotiateOpts.stressed, "stressed", false, "negotiate against a stressed grid")
	_ = negotiateCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(negotiateCmd)
}

func runNegotiate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	n, err := negotiation.NewNegotiator(
		grid.NewContext(negotiateOpts.stressed),
		queue.New(),
		policy.NewEngine(cfg.Policy),
		cfg.Negotiation,
		negotiation.WithExtractor(intent.Heuristic{}),
	)
	if err != nil {
		return err
	}
	req := negotiation.Request{UserID: negotiateOpts.user, Text: negotiateOpts.text}
	if negotiateOpts.startSoC >= 0 {
		soc := negotiateOpts.startSoC
		req.StartSoCHint = &soc
	}
	plan, err := n.NegotiateText(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}
