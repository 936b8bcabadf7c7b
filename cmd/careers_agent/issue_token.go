package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/careers-portal/internal/config"
	"github.com/jonathan/careers-portal/internal/server"
)

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Issue an API token for an applicant",
	Long:  "Signs a bearer token for the given applicant with JWT_SECRET. Intended for local testing against the API.",
	RunE:  runIssueToken,
}

var issueTokenApplicant string

func init() {
	issueTokenCmd.Flags().StringVarP(&issueTokenApplicant, "applicant", "a", "", "Applicant ID (required)")

	if err := issueTokenCmd.MarkFlagRequired("applicant"); err != nil {
		panic(fmt.Sprintf("failed to mark applicant flag as required: %v", err))
	}

	rootCmd.AddCommand(issueTokenCmd)
}

func runIssueToken(cmd *cobra.Command, _ []string) error {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	token, err := server.NewJWTService(jwtCfg).GenerateToken(issueTokenApplicant)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
