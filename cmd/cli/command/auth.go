package command

// auth.go handles authentication commands: signin, signup, signout, whoami.

import (
	"fmt"
	"os"
	"strings"

	"librahub/internal/api"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  `Authenticate with the library service. Supports signin, signup, signout.`,
}

var signinCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in to your library account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		remember, _ := cmd.Flags().GetBool("remember")

		// Prefill from the remembered login when nothing was provided
		if email == "" && password == "" {
			if rememberedEmail, rememberedPassword, ok := a.session.RememberedLogin(); ok {
				email = rememberedEmail
				password = rememberedPassword
				remember = true
				fmt.Printf("Using remembered login for %s\n", email)
			}
		}

		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if password == "" {
			password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		student, err := a.session.SignIn(cmd.Context(), email, password, remember)
		if err != nil {
			return fmt.Errorf("sign in failed: %w", err)
		}

		// Merge guest favorites collected before signing in, then refresh
		// the signed-in state
		if err := a.favorites.Load(cmd.Context()); err != nil {
			a.logger.Warn("could not load favorites after sign in", "error", err)
		}
		a.reservations.FetchMine(cmd.Context())

		fmt.Println("✓ Successfully signed in!")
		if student != nil {
			fmt.Printf("Welcome back, %s\n", student.Name)
		}
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new library account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		request := &api.SignUpRequest{}
		request.Name, _ = cmd.Flags().GetString("name")
		request.Email, _ = cmd.Flags().GetString("email")
		request.Password, _ = cmd.Flags().GetString("password")
		categories, _ := cmd.Flags().GetString("categories")
		if categories != "" {
			request.Category = strings.Split(categories, ",")
		}

		if request.Password == "" {
			request.Password, err = promptPassword("Password: ")
			if err != nil {
				return err
			}
		}

		student, err := a.session.SignUp(cmd.Context(), request)
		if err != nil {
			return fmt.Errorf("sign up failed: %w", err)
		}

		fmt.Println("✓ Registration successful!")
		if student != nil {
			fmt.Printf("Student ID: %s\n", student.ID)
		}
		return nil
	},
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out from your library account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.manager.Disconnect()
		a.session.SignOut()
		fmt.Println("✓ Successfully signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the currently signed-in student",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.session.Authenticated() {
			fmt.Println("Not signed in (guest mode).")
			return nil
		}

		id, err := a.session.StudentID(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not resolve profile: %w", err)
		}

		student := a.session.Student()
		fmt.Printf("Student ID: %s\n", id)
		if student != nil {
			fmt.Printf("Name: %s\n", student.Name)
			fmt.Printf("Email: %s\n", student.Email)
			if len(student.Category) > 0 {
				fmt.Printf("Categories: %s\n", strings.Join(student.Category, ", "))
			}
		}
		return nil
	},
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("could not read password: %w", err)
	}
	return string(raw), nil
}

func init() {
	authCmd.AddCommand(signinCmd)
	authCmd.AddCommand(signupCmd)
	authCmd.AddCommand(signoutCmd)
	authCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(authCmd)

	signinCmd.Flags().StringP("email", "e", "", "Email address for the account")
	signinCmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")
	signinCmd.Flags().BoolP("remember", "r", false, "Remember this login for next time")

	signupCmd.Flags().StringP("name", "n", "", "Name for the new account")
	signupCmd.Flags().StringP("email", "e", "", "Email address for the new account")
	signupCmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")
	signupCmd.Flags().StringP("categories", "c", "", "Comma-separated category preferences")
	signupCmd.MarkFlagRequired("name")
	signupCmd.MarkFlagRequired("email")
}
