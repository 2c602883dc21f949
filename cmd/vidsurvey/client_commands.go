package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/vidsurvey/internal/cli"
	"github.com/hyperjump/vidsurvey/internal/models"
	"github.com/spf13/cobra"
)

func newVideosCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "videos",
		Short: "List the video catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			videos, err := flags.client().LoadVideos(cmd.Context())
			if err != nil {
				return err
			}
			return cli.WriteVideos(cmd.OutOrStdout(), videos, flags.format(cmd))
		},
	}
}

func newNarrativeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "narrative <narrativeId>",
		Short: "Print a narrative's text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := flags.client().LoadNarrative(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if flags.format(cmd) == cli.OutputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{"narrative_id": args[0], "text": text})
			}
			_, err = io.WriteString(cmd.OutOrStdout(), text)
			if err == nil && !strings.HasSuffix(text, "\n") {
				_, err = io.WriteString(cmd.OutOrStdout(), "\n")
			}
			return err
		},
	}
}

func newFactsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "facts <videoId>",
		Short: "List a video's atomic facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			facts, err := flags.client().LoadAtomicFacts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cli.WriteFacts(cmd.OutOrStdout(), facts, flags.format(cmd))
		},
	}
}

func newResponsesCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "responses <username>",
		Short: "Show a user's saved responses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			responses, err := flags.client().LoadUserResponses(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return cli.WriteResponses(cmd.OutOrStdout(), responses, flags.format(cmd))
		},
	}
}

func newRespondCommand(flags *globalFlags) *cobra.Command {
	var data string
	cmd := &cobra.Command{
		Use:   "respond <username> <videoId>",
		Short: "Save a response for a video",
		Long:  "Save a response for a video. --data takes a JSON object; use - to read it from stdin.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(cmd.InOrStdin(), data)
			if err != nil {
				return err
			}
			if err := flags.client().SaveUserResponse(cmd.Context(), args[0], args[1], payload); err != nil {
				return err
			}
			if flags.format(cmd) == cli.OutputJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(models.SaveResponse{Success: true})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved response for %s / %s\n", args[0], args[1])
			return err
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "{}", "Response payload as a JSON object, or - for stdin")
	return cmd
}

func parsePayload(stdin io.Reader, data string) (map[string]any, error) {
	raw := []byte(data)
	if data == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		raw = b
	}
	if strings.TrimSpace(string(raw)) == "" {
		return map[string]any{}, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("--data must be a JSON object: %w", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}
