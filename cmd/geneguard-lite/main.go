// Package main provides the standalone GeneGuard CLI. It needs no database
// or Redis: analyses stay in memory and the audit log is a SQLite file under
// the data directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "geneguard-lite",
	Short: "Rank disease risk genes from a consumer genotype file",
	Long: `geneguard-lite maps a 23andMe raw data file or a VCF to genes through
MyVariant.info, intersects them with ADAGIO disease risk tables and prints
ranked, leveled risk rows as JSON.

Research-grade only; not a diagnostic tool.

Configuration comes from GENEGUARD_* environment variables, for example
GENEGUARD_RISK_DATA_DIR, GENEGUARD_TIP_PROVIDER and GENEGUARD_TIP_API_KEY.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(diseasesCmd, annotateCmd, rankCmd, auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
