package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garminwrap/garminwrap/internal/core"
	errwrap "github.com/garminwrap/garminwrap/internal/errors"
	"github.com/garminwrap/garminwrap/internal/garmin"
	"github.com/garminwrap/garminwrap/internal/observability"
	"github.com/garminwrap/garminwrap/internal/output"
)

var (
	statsDate       string
	activitiesStart int
	activitiesLimit int
	downloadFormat  string
	downloadOut     string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print daily stats for a date",
	Long:  "Print the daily summary Garmin Connect reports for one calendar date (default today).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, formatter, err := commandDeps()
		if err != nil {
			return err
		}
		return runStats(cmd.Context(), cmd.OutOrStdout(), svc, formatter, statsDate)
	},
}

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List recent activities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, formatter, err := commandDeps()
		if err != nil {
			return err
		}
		return runActivities(cmd.Context(), cmd.OutOrStdout(), svc, formatter, activitiesStart, activitiesLimit)
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity <id>",
	Short: "Print one activity's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, formatter, err := commandDeps()
		if err != nil {
			return err
		}
		return runActivity(cmd.Context(), cmd.OutOrStdout(), svc, formatter, args[0])
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download an activity file",
	Long: `Download the original file of an activity. FIT downloads arrive as a zip
archive. The file is written to --out, or to activity_<id>.<format> in the
current directory. Use --out - to write to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := commandDeps()
		if err != nil {
			return err
		}
		return runDownload(cmd.Context(), cmd.OutOrStdout(), svc, args[0], downloadFormat, downloadOut)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify the configured Garmin Connect credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := commandDeps()
		if err != nil {
			return err
		}
		return runLogin(cmd.Context(), cmd.OutOrStdout(), svc)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, activitiesCmd, activityCmd, downloadCmd, loginCmd)

	statsCmd.Flags().StringVar(&statsDate, "date", "", "calendar date in YYYY-MM-DD format (default today)")

	activitiesCmd.Flags().IntVar(&activitiesStart, "start", core.DefaultStart, "offset into the activity list")
	activitiesCmd.Flags().IntVar(&activitiesLimit, "limit", core.DefaultLimit, "number of activities to return")

	downloadCmd.Flags().StringVarP(&downloadFormat, "format", "f", string(garmin.FormatFIT), "file format: fit, tcx, gpx, kml, csv")
	downloadCmd.Flags().StringVar(&downloadOut, "out", "", "output path, or - for stdout")
}

// commandDeps builds the service and formatter for a one-shot command.
func commandDeps() (*core.Service, output.Formatter, error) {
	cfg, err := currentConfig()
	if err != nil {
		return nil, nil, err
	}
	formatter, err := resolveFormatter()
	if err != nil {
		return nil, nil, errwrap.NewInvalidInputError(err.Error())
	}
	svc, _ := buildService(cfg, observability.CLILogger)
	return svc, formatter, nil
}

func runStats(ctx context.Context, w io.Writer, svc *core.Service, formatter output.Formatter, date string) error {
	if date == "" {
		date = time.Now().Format(core.DateLayout)
	}
	stats, err := svc.Stats(ctx, date)
	if err != nil {
		return errwrap.FromDomain(ctx, err, map[string]interface{}{"operation": "get_stats", "date": date})
	}
	rendered, err := formatter.FormatObject("Daily stats "+date, stats)
	if err != nil {
		return errwrap.WrapInternal(ctx, err, "failed to render stats")
	}
	return writeRendered(w, rendered)
}

func runActivities(ctx context.Context, w io.Writer, svc *core.Service, formatter output.Formatter, start, limit int) error {
	activities, err := svc.Activities(ctx, start, limit)
	if err != nil {
		return errwrap.FromDomain(ctx, err, map[string]interface{}{"operation": "get_activities", "start": start, "limit": limit})
	}
	rendered, err := formatter.FormatActivities(activities)
	if err != nil {
		return errwrap.WrapInternal(ctx, err, "failed to render activities")
	}
	return writeRendered(w, rendered)
}

func runActivity(ctx context.Context, w io.Writer, svc *core.Service, formatter output.Formatter, id string) error {
	activity, err := svc.Activity(ctx, id)
	if err != nil {
		return errwrap.FromDomain(ctx, err, map[string]interface{}{"operation": "get_activity", "activity_id": id})
	}
	rendered, err := formatter.FormatObject("Activity "+id, activity)
	if err != nil {
		return errwrap.WrapInternal(ctx, err, "failed to render activity")
	}
	return writeRendered(w, rendered)
}

func runDownload(ctx context.Context, w io.Writer, svc *core.Service, id, rawFormat, out string) error {
	fields := map[string]interface{}{"operation": "download_activity", "activity_id": id}

	format, err := garmin.ParseFormat(rawFormat)
	if err != nil {
		return errwrap.FromDomain(ctx, err, fields)
	}
	download, err := svc.DownloadActivity(ctx, id, format)
	if err != nil {
		return errwrap.FromDomain(ctx, err, fields)
	}

	if out == "-" {
		_, err := w.Write(download.Data)
		return err
	}
	if out == "" {
		out = download.Filename()
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errwrap.WrapInternal(ctx, err, "failed to create output directory")
		}
	}
	if err := os.WriteFile(out, download.Data, 0o644); err != nil {
		return errwrap.WrapInternal(ctx, err, "failed to write activity file")
	}

	if observability.CLILogger != nil {
		observability.CLILogger.Debug("Activity file written",
			zap.String("path", out),
			zap.String("file_type", string(download.FileType)),
			zap.Int("bytes", len(download.Data)))
	}
	_, err = fmt.Fprintf(w, "Saved %s (%d bytes, %s)\n", out, len(download.Data), download.ContentType())
	return err
}

func runLogin(ctx context.Context, w io.Writer, svc *core.Service) error {
	if _, err := svc.Sessions.Reauthenticate(ctx); err != nil {
		return errwrap.FromDomain(ctx, err, map[string]interface{}{"operation": "login"})
	}
	_, err := fmt.Fprintln(w, "Authenticated with Garmin Connect")
	return err
}
