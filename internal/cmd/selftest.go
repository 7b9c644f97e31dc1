package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/garminwrap/garminwrap/internal/core"
	errwrap "github.com/garminwrap/garminwrap/internal/errors"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Exercise every upstream operation once",
	Long: `Log in, list the most recent activity, fetch its details and fetch today's
stats. Each step is reported as it completes; the first failure stops the run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := commandDeps()
		if err != nil {
			return err
		}
		return runSelftest(cmd.Context(), cmd.OutOrStdout(), svc, time.Now())
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}

func runSelftest(ctx context.Context, w io.Writer, svc *core.Service, now time.Time) error {
	step := func(name string, err error) error {
		if err != nil {
			fmt.Fprintf(w, "FAIL  %s: %v\n", name, err)
			return errwrap.FromDomain(ctx, err, map[string]interface{}{"operation": "selftest", "step": name})
		}
		fmt.Fprintf(w, "ok    %s\n", name)
		return nil
	}

	_, err := svc.Sessions.Reauthenticate(ctx)
	if err := step("login", err); err != nil {
		return err
	}

	activities, err := svc.Activities(ctx, 0, 1)
	if err := step("list activities", err); err != nil {
		return err
	}

	if id, ok := firstActivityID(activities); ok {
		_, err = svc.Activity(ctx, id)
		if err := step("activity "+id, err); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, "skip  activity details: account has no activities")
	}

	date := now.Format(core.DateLayout)
	_, err = svc.Stats(ctx, date)
	if err := step("stats "+date, err); err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, "All checks passed")
	return err
}

// firstActivityID reads activityId from the first element of a list payload.
func firstActivityID(raw []byte) (string, bool) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return "", false
	}
	value, ok := items[0]["activityId"]
	if !ok {
		return "", false
	}

	var number json.Number
	if err := json.Unmarshal(value, &number); err == nil && number != "" {
		if _, err := strconv.ParseInt(number.String(), 10, 64); err == nil {
			return number.String(), true
		}
	}
	var text string
	if err := json.Unmarshal(value, &text); err == nil && text != "" {
		return text, true
	}
	return "", false
}
