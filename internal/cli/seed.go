package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"compliance-tracker-api/internal/dto"
	"compliance-tracker-api/internal/models"
	"compliance-tracker-api/internal/workflow"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedUsername string
	seedPassword string
	seedClients  bool
)

var sampleClients = []dto.CreateClientRequest{
	{Name: "Acme Trading Corp.", TIN: "123-456-789-000", ContactPerson: "Maria Santos", Birthday: "1998-07-01"},
	{Name: "Northwind Holdings Inc.", TIN: "234-567-890-000", ContactPerson: "Jose Reyes"},
	{Name: "Bayanihan Foods", TIN: "345-678-901-000", ContactPerson: "Ana Cruz", Birthday: "2005-11-23"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the first admin user and sample clients",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedUsername, "username", "u", "admin", "Admin username")
	seedCmd.Flags().StringVarP(&seedPassword, "password", "p", "", "Admin password (default $SEED_ADMIN_PASSWORD)")
	seedCmd.Flags().BoolVar(&seedClients, "clients", true, "Also create sample clients")
}

func runSeed(cmd *cobra.Command, args []string) error {
	password := seedPassword
	if password == "" {
		password = os.Getenv("SEED_ADMIN_PASSWORD")
	}
	if len(password) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters (use --password or SEED_ADMIN_PASSWORD)")
	}

	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	app := env.services()
	ctx := context.Background()

	admin, err := app.users.Register(ctx, dto.CreateUserRequest{
		Username: seedUsername,
		Password: password,
		FullName: "Administrator",
		Role:     models.RoleAdmin,
	})
	switch {
	case errors.Is(err, workflow.ErrConflict):
		admin, err = app.users.Authenticate(ctx, seedUsername, password)
		if err != nil {
			return fmt.Errorf("user %q exists with a different password", seedUsername)
		}
		fmt.Println(dimStyle.Render("• admin " + seedUsername + " already exists"))
	case err != nil:
		return err
	default:
		fmt.Println(successStyle.Render("✓ created admin " + seedUsername))
	}

	if !seedClients {
		return nil
	}
	actor := workflow.ActorFromUser(*admin)
	for _, req := range sampleClients {
		_, err := app.clients.Create(ctx, actor, req)
		switch {
		case errors.Is(err, workflow.ErrConflict):
			fmt.Println(dimStyle.Render("• client " + req.Name + " already exists"))
		case err != nil:
			return err
		default:
			fmt.Println(successStyle.Render("✓ created client " + req.Name))
		}
	}
	env.log.Info("seed complete", zap.String("admin", seedUsername))
	return nil
}
