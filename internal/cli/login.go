package cli

import (
	"context"
	"fmt"
	"os"

	"compliance-tracker-api/internal/client"

	"github.com/spf13/cobra"
)

var (
	loginServer   string
	loginUsername string
	loginPassword string
	loginLanguage string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a server and save the session",
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginServer, "server", "s", "http://localhost:8008", "API base URL")
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (default $COMPLIANCE_PASSWORD)")
	loginCmd.Flags().StringVar(&loginLanguage, "lang", "", "Preferred message language: en, fil")
	_ = loginCmd.MarkFlagRequired("username")
}

func runLogin(cmd *cobra.Command, args []string) error {
	password := loginPassword
	if password == "" {
		password = os.Getenv("COMPLIANCE_PASSWORD")
	}
	if password == "" {
		return fmt.Errorf("password is required (use --password or COMPLIANCE_PASSWORD)")
	}

	api := client.New(loginServer, client.WithLanguage(loginLanguage))
	resp, err := api.Login(context.Background(), loginUsername, password)
	if err != nil {
		return explain(err)
	}

	path, err := resolveSessionPath()
	if err != nil {
		return err
	}
	err = saveSession(path, session{
		Server:   loginServer,
		Token:    resp.Token,
		UserID:   resp.UserID,
		Username: resp.Username,
		Role:     resp.Role,
		Language: loginLanguage,
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	fmt.Printf("%s %s\n", successStyle.Render("✓ logged in as "+resp.Username), dimStyle.Render("("+string(resp.Role)+")"))
	return nil
}
