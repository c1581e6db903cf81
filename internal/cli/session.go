package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ListRuns writes the correlation ids of the stored checkpoints, one per line.
func ListRuns(ctx context.Context, rt *Runtime, w io.Writer) error {
	ids, err := rt.Engine.Checkpoints(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No checkpoints found.")
		return nil
	}
	fmt.Fprintln(w, "Checkpoints:")
	for _, id := range ids {
		fmt.Fprintln(w, "- "+id)
	}
	return nil
}

// InspectRun pretty prints the checkpoint of a run.
func InspectRun(ctx context.Context, rt *Runtime, id string, w io.Writer) error {
	state, err := rt.Engine.Checkpoint(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load run %q: %w", id, err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// RemoveRuns deletes the checkpoints of every id, reporting each one.
func RemoveRuns(ctx context.Context, rt *Runtime, ids []string, w io.Writer) error {
	var errs []error
	for _, id := range ids {
		if err := rt.Engine.Forget(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %q: %w", id, err))
			continue
		}
		fmt.Fprintf(w, "Removed run '%s'\n", id)
	}
	return errors.Join(errs...)
}
