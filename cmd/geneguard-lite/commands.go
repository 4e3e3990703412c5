package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geneguard-server/internal/config"
	"github.com/geneguard-server/internal/domain"
	"github.com/geneguard-server/internal/service"
)

var (
	annotateDisease    string
	annotateMaxRecords int
	rankTopN           int
	rankTips           bool
	rankMaxRecords     int
	auditLimit         int
)

// diseasesCmd lists the supported diseases
var diseasesCmd = &cobra.Command{
	Use:   "diseases",
	Short: "List supported diseases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"diseases": domain.SupportedDiseases(),
		})
	},
}

// annotateCmd scores one file against a single disease
var annotateCmd = &cobra.Command{
	Use:   "annotate --disease DISEASE FILE",
	Short: "Rank and level the risk genes of one disease",
	Long: `Extract genes from a raw data (.txt) or VCF (.vcf, .vcf.gz) file and
print the ranked risk rows for one disease, with lifestyle tips.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

// rankCmd ranks every supported disease for one file
var rankCmd = &cobra.Command{
	Use:   "rank [--top N] [--tips] FILE",
	Short: "Rank diseases by aggregate gene risk",
	Args:  cobra.ExactArgs(1),
	RunE:  runRank,
}

// auditCmd prints recent audit log entries
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit log entries",
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

func init() {
	annotateCmd.Flags().StringVarP(&annotateDisease, "disease", "d", "", "disease to score (see 'diseases')")
	annotateCmd.Flags().IntVar(&annotateMaxRecords, "max-records", 0, "maximum lines or VCF records to read (0 uses the configured default)")
	_ = annotateCmd.MarkFlagRequired("disease")

	rankCmd.Flags().IntVarP(&rankTopN, "top", "n", service.DefaultTopN, "number of diseases to return")
	rankCmd.Flags().BoolVar(&rankTips, "tips", false, "attach per-gene risk rows with lifestyle tips")
	rankCmd.Flags().IntVar(&rankMaxRecords, "max-records", 0, "maximum lines or VCF records to read (0 uses the configured default)")

	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "number of entries to show")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, config.LoadLiteConfig())
	if err != nil {
		return err
	}
	defer rt.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening genotype file: %w", err)
	}
	defer f.Close()

	result, err := rt.analysis.AnalyzeUpload(ctx, service.UploadRequest{
		Filename:   f.Name(),
		Body:       f,
		Disease:    annotateDisease,
		MaxRecords: annotateMaxRecords,
		Actor:      liteActor,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runRank(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, config.LoadLiteConfig())
	if err != nil {
		return err
	}
	defer rt.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening genotype file: %w", err)
	}
	defer f.Close()

	result, err := rt.analysis.AutoRank(ctx, service.AutoRankRequest{
		Filename:    f.Name(),
		Body:        f,
		MaxRecords:  rankMaxRecords,
		TopN:        rankTopN,
		IncludeTips: rankTips,
		Actor:       liteActor,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, config.LoadLiteConfig())
	if err != nil {
		return err
	}
	defer rt.Close()

	entries, err := rt.audit.List(ctx, auditLimit, 0)
	if err != nil {
		return err
	}
	total, err := rt.audit.Count(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}
