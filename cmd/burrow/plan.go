package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cuemby/burrow/pkg/spec"
	"github.com/cuemby/burrow/pkg/types"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the topology plan of a cluster spec",
		Long: `Plan the capacity groups of a cluster from its spec file.

Examples:
  # Show groups, seed election and client routing
  burrow plan -f cluster.yaml`,
		Args: cobra.NoArgs,
		RunE: runPlan,
	}
	cmd.Flags().StringP("file", "f", "", "Cluster spec file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runPlan(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	s, err := spec.Load(filename)
	if err != nil {
		return err
	}
	plan, err := s.Plan()
	if err != nil {
		return fmt.Errorf("failed to plan topology: %w", err)
	}

	return printPlan(cmd.OutOrStdout(), s.Name(), plan)
}

func printPlan(out io.Writer, cluster string, plan *types.TopologyPlan) error {
	mode := "distributed"
	if plan.SingleNode {
		mode = "single-node"
	}
	fmt.Fprintf(out, "Cluster: %s\n", cluster)
	fmt.Fprintf(out, "  Mode: %s\n", mode)
	fmt.Fprintf(out, "  Seed: %s (manager capacity %d, data capacity %d)\n",
		plan.Seed.Role, plan.Seed.ManagerCapacity, plan.Seed.DataCapacity)
	if plan.ClientTarget != nil {
		fmt.Fprintf(out, "  Client traffic: %s\n", plan.ClientTarget.Name)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tROLE\tINSTANCE\tSTORAGE\tCOUNT")
	for _, g := range plan.Groups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dGiB\t%d\n", g.Name, g.Role, g.InstanceType, g.StorageSizeGiB, g.DesiredCount)
	}
	return w.Flush()
}
