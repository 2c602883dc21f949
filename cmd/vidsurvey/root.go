package main

import (
	"fmt"

	"github.com/hyperjump/vidsurvey/internal/cli"
	"github.com/hyperjump/vidsurvey/internal/client"
	"github.com/spf13/cobra"
)

const (
	defaultConfigPath = "config.yaml"
	defaultServerURL  = "http://localhost:3001"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	serverURL  string
	jsonOutput bool
}

func (g *globalFlags) client() *client.Client {
	return client.New(g.serverURL)
}

func (g *globalFlags) format(cmd *cobra.Command) cli.OutputFormat {
	return cli.DetectFormat(cmd.OutOrStdout(), g.jsonOutput)
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "vidsurvey",
		Short:         "Video survey server and client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", defaultConfigPath, "Configuration file path (defaults apply when missing)")
	rootCmd.PersistentFlags().StringVar(&flags.serverURL, "server", defaultServerURL, "Survey server URL for client commands")
	rootCmd.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "Write JSON even on a terminal")

	rootCmd.AddCommand(newServeCommand(flags))
	rootCmd.AddCommand(newVideosCommand(flags))
	rootCmd.AddCommand(newNarrativeCommand(flags))
	rootCmd.AddCommand(newFactsCommand(flags))
	rootCmd.AddCommand(newResponsesCommand(flags))
	rootCmd.AddCommand(newRespondCommand(flags))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "vidsurvey version %s\n", version)
			return err
		},
	}
}
