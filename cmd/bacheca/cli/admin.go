package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bachecahq/bacheca/internal/service"
	"github.com/bachecahq/bacheca/internal/store"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage user accounts",
		Long:  "Create, list and update user accounts directly in the store, without going through the API.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminPasswdCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		username string
		password string
		isAdmin  bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user account",
		Example: `  bacheca admin create --username mario --password secret
  bacheca admin create --username mario --admin  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(username, password, isAdmin)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant administrator privileges")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runAdminCreate(username, password string, isAdmin bool) error {
	if username == "" {
		return fmt.Errorf("username must not be empty")
	}

	if password == "" {
		var err error
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	st, authSvc, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := authSvc.CreateUser(context.Background(), username, password, isAdmin)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	role := "user"
	if user.IsAdmin {
		role = "admin"
	}
	fmt.Printf("Created %s %q (id %s)\n", role, user.Username, user.ID)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := st.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Println("No user accounts found. Use 'bacheca admin create' to create one.")
		return nil
	}

	fmt.Printf("%-36s %-24s %-6s %s\n", "ID", "USERNAME", "ADMIN", "CREATED")
	fmt.Printf("%-36s %-24s %-6s %s\n", "--", "--------", "-----", "-------")
	for _, u := range users {
		admin := "no"
		if u.IsAdmin {
			admin = "yes"
		}
		fmt.Printf("%-36s %-24s %-6s %s\n", u.ID, u.Username, admin, u.CreatedAt.Format("2006-01-02 15:04"))
	}

	return nil
}

// ---------- admin passwd ----------

func newAdminPasswdCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Reset a user's password",
		Long:  "Reset a user's password. All of the user's active sessions are revoked.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminPasswd(args[0], password)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (prompted if omitted)")

	return cmd
}

func runAdminPasswd(username, password string) error {
	if password == "" {
		var err error
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	st, authSvc, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	user, err := st.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("look up user %q: %w", username, err)
	}
	if err := authSvc.ChangePassword(ctx, user.ID, password); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	fmt.Printf("Password updated for %q; all sessions revoked\n", username)
	return nil
}

// ---------- helpers ----------

func openStore() (*store.Store, *service.AuthService, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if dsn := os.Getenv("BACHECA_DATABASE_DSN"); dsn != "" {
		cfg.Database.DSN = dsn
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	ttl, err := cfg.SessionTTL()
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return st, service.NewAuthService(st, ttl), nil
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}
