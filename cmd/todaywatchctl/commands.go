// Today Watch - Local Video Recommendation and Queue Planning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/todaywatch

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/todaywatch/internal/models"
	"github.com/tomtom215/todaywatch/internal/todaywatch"
	"github.com/tomtom215/todaywatch/internal/validation"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "todaywatchctl",
		Short:         "Build and inspect Today Watch plans offline",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(planCmd())
	root.AddCommand(keywordsCmd())
	root.AddCommand(consumeCmd())
	return root
}

func planCmd() *cobra.Command {
	var (
		snapshot string
		mode     string
		night    bool
		nowFlag  string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build a plan from a snapshot of history and candidates",
		Long: "Reads a snapshot in the same shape as the preview endpoint body " +
			"and prints the resulting plan as JSON.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req models.PreviewRequest
			if err := readJSON(snapshot, &req); err != nil {
				return err
			}

			if mode != "" {
				if _, err := todaywatch.ParseMode(mode); err != nil {
					return err
				}
				req.Mode = mode
			}
			if cmd.Flags().Changed("night") {
				req.NightActive = night
			}
			if nowFlag != "" {
				now, err := time.Parse(time.RFC3339, nowFlag)
				if err != nil {
					return fmt.Errorf("parse --now: %w", err)
				}
				req.Now = &now
			}

			if verr := validation.ValidateStruct(&req); verr != nil {
				return fmt.Errorf("invalid snapshot: %w", verr)
			}

			plan := todaywatch.BuildPlan(req.BuildInput(time.Now()))
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}

	cmd.Flags().StringVar(&snapshot, "snapshot", "", "snapshot JSON file, - for stdin")
	cmd.Flags().StringVar(&mode, "mode", "", "RELAX or LEARN, overrides the snapshot")
	cmd.Flags().BoolVar(&night, "night", false, "treat the eye-care night window as active")
	cmd.Flags().StringVar(&nowFlag, "now", "", "evaluation time in RFC3339")
	_ = cmd.MarkFlagRequired("snapshot")
	return cmd
}

func keywordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords [title]",
		Short: "Print the feedback keywords a dislike of this title would record",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words := todaywatch.ExtractFeedbackKeywords(strings.Join(args, " "))
			if words == nil {
				words = []string{}
			}
			return writeJSON(cmd.OutOrStdout(), words)
		},
	}
}

// consumeResult is the output of the consume command.
type consumeResult struct {
	Applied      bool            `json:"applied"`
	ShouldRefill bool            `json:"should_refill"`
	Plan         todaywatch.Plan `json:"plan"`
}

func consumeCmd() *cobra.Command {
	var (
		planPath string
		id       string
		preview  int
	)

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Remove a video from a plan the way opening it does",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var plan todaywatch.Plan
			if err := readJSON(planPath, &plan); err != nil {
				return err
			}

			updated, applied, refill := todaywatch.Consume(plan, id, preview)
			return writeJSON(cmd.OutOrStdout(), consumeResult{
				Applied:      applied,
				ShouldRefill: refill,
				Plan:         updated,
			})
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "plan JSON file, - for stdin")
	cmd.Flags().StringVar(&id, "id", "", "content id that was opened")
	cmd.Flags().IntVar(&preview, "preview", models.DefaultSettings().QueuePreviewLimit, "preview window size")
	_ = cmd.MarkFlagRequired("plan")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func readJSON(path string, v interface{}) error {
	if path == "" {
		return errors.New("no input file given")
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
