package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Never2333/tfl-status/internal/snapshot"
)

var (
	buildIfStale bool
	buildOut     string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the offline station snapshot",
}

var snapshotBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the station directory from TfL and save it as the offline snapshot",
	Long: "Runs the same bulk build as the API's directory index. A failed or empty\n" +
		"build never replaces an existing snapshot; it only fails the command when\n" +
		"no snapshot exists at all.",
	RunE: runSnapshotBuild,
}

var snapshotInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the current offline snapshot",
	RunE:  runSnapshotInfo,
}

func init() {
	snapshotBuildCmd.Flags().BoolVar(&buildIfStale, "if-stale", false, "skip the build when the snapshot is younger than SNAPSHOT_MAX_AGE_DAYS")
	snapshotBuildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "write a JSON snapshot to this path instead of the configured backend")
	snapshotCmd.AddCommand(snapshotBuildCmd)
	snapshotCmd.AddCommand(snapshotInfoCmd)
}

func runSnapshotBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := services(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	store := svc.Store
	if buildOut != "" {
		store = snapshot.NewFileStore(buildOut)
	}

	existing, loadErr := store.Load(ctx)
	if loadErr != nil && !errors.Is(loadErr, snapshot.ErrNotFound) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: existing snapshot unreadable: %v\n", loadErr)
		existing = nil
	}
	if buildIfStale && !snapshot.IsStale(existing, cfg.SnapshotMaxAge(), time.Now()) {
		fmt.Fprintf(cmd.OutOrStdout(), "snapshot from %s is fresh, skipping build\n", existing.GeneratedAt.Format(time.RFC3339))
		return nil
	}

	buildCtx, cancel := context.WithTimeout(ctx, cfg.BuildTimeout)
	defer cancel()
	idx, err := svc.Builder.Build(buildCtx)
	if err == nil {
		doc := snapshot.FromIndex(idx, uuid.NewString())
		if err = store.Save(ctx, doc); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "saved snapshot %s: %d stations\n", doc.BuildID, len(doc.Stations))
			return nil
		}
	}

	if existing != nil && len(existing.Stations) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "build failed, keeping existing snapshot (%d stations): %v\n", len(existing.Stations), err)
		return nil
	}
	return fmt.Errorf("build failed and no snapshot exists: %w", err)
}

func runSnapshotInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, err := services(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	doc, err := svc.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	out := cmd.OutOrStdout()
	if doc.GeneratedAt.IsZero() {
		fmt.Fprintln(out, "generated:  unknown (legacy snapshot)")
	} else {
		fmt.Fprintf(out, "generated:  %s (%s ago)\n", doc.GeneratedAt.Format(time.RFC3339), doc.Age(time.Now()).Round(time.Minute))
	}
	if doc.BuildID != "" {
		fmt.Fprintf(out, "build:      %s\n", doc.BuildID)
	}
	fmt.Fprintf(out, "stations:   %d\n", len(doc.Stations))
	fmt.Fprintf(out, "stale:      %t\n", snapshot.IsStale(doc, cfg.SnapshotMaxAge(), time.Now()))
	return nil
}
