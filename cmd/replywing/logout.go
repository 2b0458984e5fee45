package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replywing/replywing/authflow"
	"github.com/replywing/replywing/session"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the current token and clear the session",
	RunE:  runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	svc, _, _, err := newFlowService()
	if err != nil {
		return err
	}

	switch err := svc.Logout(cmd.Context()); {
	case err == nil:
		fmt.Println("Logged out.")
		return nil
	case errors.Is(err, session.ErrNoSession):
		fmt.Println("Not logged in.")
		return nil
	case authflow.KindOf(err) == authflow.KindRevocation:
		// Session intentionally kept so revocation can be retried.
		return fmt.Errorf("failed to revoke token; you are still logged in locally — retry with 'replywing logout'")
	default:
		return err
	}
}
