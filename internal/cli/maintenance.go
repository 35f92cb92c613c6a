package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/forPelevin/gifcut/internal/deps"
	"github.com/forPelevin/gifcut/internal/store"
	"github.com/forPelevin/gifcut/internal/sweep"
)

func newSweepCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired uploads, cached videos and GIFs once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			results := sweep.All(cmd.Context(), cfg.Policies(), time.Now(), logger)

			rows := make([][]string, 0, len(results))
			failed := 0
			for _, res := range results {
				failed += len(res.Errors)
				rows = append(rows, []string{res.Dir, strconv.Itoa(len(res.Removed)), strconv.Itoa(len(res.Errors))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Directory", "Removed", "Errors"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			if failed > 0 {
				return fmt.Errorf("sweep: %d entries could not be removed", failed)
			}
			return nil
		},
	}
}

func newDoctorCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the external tools are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			statuses := deps.CheckVersions(cmd.Context(), nil, cfg.Requirements())

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "ok"
				switch {
				case !s.Available && s.Optional:
					state = "missing (optional)"
				case !s.Available:
					state = "MISSING"
				}
				detail := s.Version
				if detail == "" {
					detail = s.Detail
				}
				rows = append(rows, []string{s.Name, s.Command, state, detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Tool", "Command", "Status", "Version"}, rows, nil))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}

func newListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List GIFs in the output store, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			st, err := store.New(cfg.OutputDir, cfg.PublicPrefix)
			if err != nil {
				return err
			}
			artifacts, err := st.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(artifacts) == 0 {
				fmt.Fprintln(out, "No GIFs stored")
				return nil
			}

			rows := make([][]string, 0, len(artifacts))
			for _, a := range artifacts {
				rows = append(rows, []string{
					st.PublicPath(a.Name),
					humanize.IBytes(uint64(a.Size)),
					humanize.Time(a.ModTime),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Path", "Size", "Created"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
}
