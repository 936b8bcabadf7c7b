package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/careers-portal/internal/export"
	"github.com/jonathan/careers-portal/internal/schemas"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an application JSON file to an Excel workbook",
	Long:  "Writes an xlsx workbook with one sheet per record kind: profile, education, experience, dependents and references.",
	RunE:  runExport,
}

var (
	exportInput  string
	exportOutput string
)

func init() {
	exportCmd.Flags().StringVarP(&exportInput, "in", "i", "", "Path to application JSON file (required)")
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Path to output xlsx file (required)")

	if err := exportCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	if err := exportCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	if err := schemas.ValidateApplicationFile(exportInput); err != nil {
		return fmt.Errorf("invalid application file: %w", err)
	}
	app, err := readApplication(exportInput)
	if err != nil {
		return err
	}
	if err := export.WriteFile(exportOutput, app); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", exportOutput)
	return nil
}
