package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replywing/replywing/session"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	_, sessions, _, err := newFlowService()
	if err != nil {
		return err
	}

	sess, err := sessions.Get()
	if errors.Is(err, session.ErrNoSession) {
		fmt.Println("Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("@%s (%s)\n", sess.Profile.Handle, sess.Profile.DisplayName)
	fmt.Printf("  requests used: %d\n", sess.Profile.RequestCount)
	fmt.Printf("  paid tier:     %v\n", sess.Profile.IsPaid)
	if sess.ExpiresAt.IsZero() {
		fmt.Println("  token expiry:  none reported")
	} else {
		fmt.Printf("  token expiry:  %s\n", sess.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
