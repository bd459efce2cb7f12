package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/drishti/internal/store"
)

var sessionsUser string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect saved monitoring sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions for a user, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSessionsList()
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		return deleteSession(st, os.Stdout, args[0])
	},
}

func init() {
	sessionsListCmd.Flags().StringVar(&sessionsUser, "user", "", "user ID (required)")
	sessionsListCmd.MarkFlagRequired("user")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList() error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, err := st.Sessions().ListByUser(sessionsUser)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSESSION\tSTARTED\tDURATION\tBLINKS")
	fmt.Fprintln(w, "--\t-------\t-------\t--------\t------")

	for _, s := range sessions {
		started := time.Unix(0, int64(s.StartTime*float64(time.Second))).Local()
		duration := time.Duration((s.EndTime - s.StartTime) * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", s.ID, s.SessionID, started.Format("2006-01-02 15:04"), duration, len(s.BlinkTimestamps))
	}
	return w.Flush()
}

func deleteSession(st *store.Store, out io.Writer, id string) error {
	if err := st.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("session %q not found", id)
		}
		return fmt.Errorf("delete session: %w", err)
	}
	fmt.Fprintf(out, "Deleted session %s\n", id)
	return nil
}
