package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/burrow/pkg/assembler"
	"github.com/cuemby/burrow/pkg/ledger"
	"github.com/cuemby/burrow/pkg/overlay"
	"github.com/cuemby/burrow/pkg/spec"
	"github.com/cuemby/burrow/pkg/types"
)

const (
	configFileName = "opensearch.yml"
	jvmFileName    = "jvm.options"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the configuration of every planned role",
		Long: `Render the configuration document and JVM options of every role in the
topology plan into OUT/<role>/.

Examples:
  # Render with the built-in templates
  burrow render -f cluster.yaml -o out/

  # Use a local template tree and track changes between renders
  burrow render -f cluster.yaml -o out/ --templates ./templates --ledger burrow.db`,
		Args: cobra.NoArgs,
		RunE: runRender,
	}
	cmd.Flags().StringP("file", "f", "", "Cluster spec file (required)")
	cmd.Flags().StringP("out", "o", "", "Output directory (required)")
	cmd.Flags().String("templates", "", "Template directory with base/ and roles/ (default: built-in)")
	cmd.Flags().String("ledger", "", "Ledger database recording render fingerprints")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	outDir, _ := cmd.Flags().GetString("out")
	templates, _ := cmd.Flags().GetString("templates")
	ledgerPath, _ := cmd.Flags().GetString("ledger")
	out := cmd.OutOrStdout()

	s, err := spec.Load(filename)
	if err != nil {
		return err
	}
	plan, err := s.Plan()
	if err != nil {
		return fmt.Errorf("failed to plan topology: %w", err)
	}

	store := overlay.DefaultStore()
	if templates != "" {
		store = overlay.NewStore(os.DirFS(templates))
	}
	asm := assembler.NewAssembler(store)

	configs, err := asm.AssembleAll(plan, func(role types.NodeRole) assembler.Input {
		return s.AssemblerInput(plan, role)
	})
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		if err := writeRendered(outDir, cfg); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Rendered %s\n", filepath.Join(outDir, string(cfg.Role)))
	}

	if ledgerPath == "" {
		return nil
	}

	l, err := ledger.Open(ledgerPath)
	if err != nil {
		return err
	}
	defer l.Close()

	return recordRender(out, l, s.Name(), plan, configs)
}

// recordRender stores the render in the ledger and reports, per role, how it
// compares to the previous render together with the new fingerprint
func recordRender(out io.Writer, l *ledger.Ledger, cluster string, plan *types.TopologyPlan, configs []*types.RenderedConfig) error {
	fmt.Fprintln(out)

	prev, err := l.GetPlan(cluster)
	switch {
	case errors.Is(err, ledger.ErrPlanNotFound):
		fmt.Fprintf(out, "First render of %s\n", cluster)
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "Previous render: %s (plan %016x)\n", prev.RecordedAt.Format(time.RFC3339), prev.Hash)
	}

	planChanged, changes, err := l.Record(cluster, plan, configs)
	if err != nil {
		return err
	}
	if planChanged {
		fmt.Fprintln(out, "Topology plan changed since the last render")
	}

	records, err := l.Renders(cluster)
	if err != nil {
		return err
	}
	hashes := make(map[types.NodeRole]uint64, len(records))
	for _, rec := range records {
		hashes[rec.Role] = rec.Hash
	}

	for _, c := range changes {
		if c.Status == ledger.StatusRemoved {
			fmt.Fprintf(out, "  %-12s %s\n", c.Role, c.Status)
			continue
		}
		fmt.Fprintf(out, "  %-12s %-10s %016x\n", c.Role, c.Status, hashes[c.Role])
	}
	return nil
}

func writeRendered(outDir string, cfg *types.RenderedConfig) error {
	dir := filepath.Join(outDir, string(cfg.Role))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFileName), cfg.Document, 0644); err != nil {
		return fmt.Errorf("failed to write %s config: %w", cfg.Role, err)
	}
	if err := os.WriteFile(filepath.Join(dir, jvmFileName), assembler.RenderJVMOptions(cfg.JVMOptions), 0644); err != nil {
		return fmt.Errorf("failed to write %s jvm options: %w", cfg.Role, err)
	}
	return nil
}
