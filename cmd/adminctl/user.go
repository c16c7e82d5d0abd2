package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"studio/admin/internal/authpw"
	"studio/admin/internal/rbac"
)

var (
	userEmail    string
	userName     string
	userRole     string
	userPassword string
)

// userCmd groups admin account commands.
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage admin accounts",
}

// userAddCmd creates an account.
var userAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Create an admin account",
	Example: `  adminctl user add --email office@studio.example --name Office --role editor --password '...'`,
	RunE:    runUserAdd,
}

// userPasswdCmd replaces the password of an existing account.
var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Set the password of an admin account",
	RunE:  runUserPasswd,
}

// userDisableCmd blocks sign-in and refresh for an account.
var userDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, true)
	},
}

var userEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Re-enable a disabled admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setDisabled(cmd, false)
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "account email")
	userAddCmd.Flags().StringVar(&userName, "name", "", "display name")
	userAddCmd.Flags().StringVar(&userRole, "role", string(rbac.RoleEditor), "viewer, editor or admin")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	_ = userAddCmd.MarkFlagRequired("email")
	_ = userAddCmd.MarkFlagRequired("password")

	userPasswdCmd.Flags().StringVar(&userEmail, "email", "", "account email")
	userPasswdCmd.Flags().StringVar(&userPassword, "password", "", "new password")
	_ = userPasswdCmd.MarkFlagRequired("email")
	_ = userPasswdCmd.MarkFlagRequired("password")

	for _, cmd := range []*cobra.Command{userDisableCmd, userEnableCmd} {
		cmd.Flags().StringVar(&userEmail, "email", "", "account email")
		_ = cmd.MarkFlagRequired("email")
	}

	userCmd.AddCommand(userAddCmd, userPasswdCmd, userDisableCmd, userEnableCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	role, ok := rbac.ParseRole(userRole)
	if !ok {
		return fmt.Errorf("unknown role %q", userRole)
	}
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := authpw.NewService(e.store).CreateUser(cmd.Context(), authpw.CreateUserRequest{
		Email:    userEmail,
		Name:     userName,
		Password: userPassword,
		Role:     string(role),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.ID, user.Email, user.Role)
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if err := authpw.NewService(e.store).SetPassword(cmd.Context(), userEmail, userPassword); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", userEmail)
	return nil
}

func setDisabled(cmd *cobra.Command, disabled bool) error {
	e, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	if err := authpw.NewService(e.store).SetDisabled(cmd.Context(), userEmail, disabled); err != nil {
		return err
	}
	state := "enabled"
	if disabled {
		state = "disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", userEmail, state)
	return nil
}
