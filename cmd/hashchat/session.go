package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/hashchat-engine/internal/app"
	"github.com/vovakirdan/hashchat-engine/internal/core"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&flags.override.Addr, "addr", "", "HTTP listen address")
	cmd.Flags().DurationVar(&flags.override.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a directory account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if email == "" {
				if email, err = readLine(in, cmd.OutOrStdout(), "email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = readLine(in, cmd.OutOrStdout(), "password: "); err != nil {
					return err
				}
			}
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				identity, err := a.Engine().Session().Login(ctx, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", identity.DisplayName, identity.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newSignupCmd(flags *globalFlags) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register an account and verify it with the emailed code",
		Long: `signup starts a registration and then prompts for the 4-digit
verification code. Type "resend" to resend the code; an empty line abandons
the registration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			in := bufio.NewReader(cmd.InOrStdin())
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				session := a.Engine().Session()
				if err := session.Signup(ctx, name, email, password); err != nil {
					return err
				}
				fmt.Fprintf(out, "verification code sent to %s\n", email)

				for {
					code, err := readLine(in, out, "code: ")
					if err != nil || code == "" {
						session.AbandonSignup()
						return errors.New("signup abandoned")
					}
					if code == "resend" {
						if err := session.ResendOTP(); err != nil {
							return err
						}
						fmt.Fprintln(out, "verification code resent")
						continue
					}
					identity, err := session.VerifyOTP(ctx, code)
					if err != nil {
						if core.KindOf(err) == "" {
							return err
						}
						fmt.Fprintln(out, err)
						continue
					}
					fmt.Fprintf(out, "welcome, %s\n", identity.DisplayName)
					return nil
				}
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Leave the current room and end the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Engine().EndSession(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withApp(cmd, func(_ context.Context, a *app.App) error {
				printIdentity(cmd, a.Engine().Session().Identity())
				return nil
			})
		},
	}
}

func newProfileCmd(flags *globalFlags) *cobra.Command {
	var name, bio, avatarPath string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update display name, bio or avatar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				var upd core.ProfileUpdate
				if cmd.Flags().Changed("name") {
					upd.DisplayName = &name
				}
				if cmd.Flags().Changed("bio") {
					upd.Bio = &bio
				}
				if avatarPath != "" {
					ref, err := encodeFile(ctx, a, avatarPath)
					if err != nil {
						return err
					}
					upd.AvatarRef = &ref
				}

				identity, err := a.Engine().Session().UpdateProfile(ctx, upd)
				if err != nil {
					return err
				}
				if identity == nil {
					return core.ErrNoSession
				}
				printIdentity(cmd, identity)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new display name")
	cmd.Flags().StringVar(&bio, "bio", "", "new bio")
	cmd.Flags().StringVar(&avatarPath, "avatar", "", "image file to use as avatar")
	return cmd
}

func newThemeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle]",
		Short:     "Show or toggle the theme",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.withApp(cmd, func(ctx context.Context, a *app.App) error {
				session := a.Engine().Session()
				theme := session.Theme()
				if len(args) == 1 {
					var err error
					if theme, err = session.ToggleTheme(ctx); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), theme)
				return nil
			})
		},
	}
}

func printIdentity(cmd *cobra.Command, identity *core.Identity) {
	out := cmd.OutOrStdout()
	if identity == nil {
		fmt.Fprintln(out, "not logged in")
		return
	}
	fmt.Fprintf(out, "%s <%s>\n  id: %s\n", identity.DisplayName, identity.Email, identity.ID)
	if identity.Bio != "" {
		fmt.Fprintf(out, "  bio: %s\n", identity.Bio)
	}
	if identity.AvatarRef != "" {
		fmt.Fprintf(out, "  avatar: %s\n", shortRef(identity.AvatarRef))
	}
}

func encodeFile(ctx context.Context, a *app.App, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	res := <-a.Attachments().Produce(ctx, f)
	return res.Ref, res.Err
}
