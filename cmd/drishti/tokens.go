package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/drishti/internal/store"
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Manage push notification recipients",
}

var tokensAddCmd = &cobra.Command{
	Use:   "add <user-id> <token>",
	Short: "Register a device token for a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Tokens().Register(args[0], args[1]); err != nil {
			return fmt.Errorf("register token: %w", err)
		}
		fmt.Printf("Registered token for %s\n", args[0])
		return nil
	},
}

var tokensListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered device tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		tokens, err := st.Tokens().List()
		if err != nil {
			return fmt.Errorf("list tokens: %w", err)
		}
		if len(tokens) == 0 {
			fmt.Println("No tokens registered.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "USER\tTOKEN\tUPDATED")
		for _, t := range tokens {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.UserID, t.Token, t.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var tokensRemoveCmd = &cobra.Command{
	Use:   "remove <token>",
	Short: "Stop sending notifications to a device token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		return removeToken(st, os.Stdout, args[0])
	},
}

func removeToken(st *store.Store, out io.Writer, token string) error {
	t, err := st.Tokens().Get(token)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("token %q is not registered", token)
	}
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}

	if err := st.Tokens().Delete(token); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	fmt.Fprintf(out, "Removed token for %s\n", t.UserID)
	return nil
}

func init() {
	tokensCmd.AddCommand(tokensAddCmd, tokensListCmd, tokensRemoveCmd)
	rootCmd.AddCommand(tokensCmd)
}
