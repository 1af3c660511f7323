package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"familyalbum/pkg/auth"
	"familyalbum/pkg/logger"
	"familyalbum/pkg/mitene"
	"familyalbum/pkg/pagemodel"
	"familyalbum/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored album passwords",
		Long: `Manage album passwords stored for use by the download command.

Passwords are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation

FAMILYALBUM_ID_TOKEN and FAMILYALBUM_PASSWORD are also honoured.`,
	}

	cmd.AddCommand(newLoginCmd(opts))
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newListCmd())
	return cmd
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "login [id-token]",
		Short: "Store the password for an album",
		Long: `Store the password for an album. You are prompted for the id token when it is
not given and for the password, which is not echoed.`,
		Example: `  familyalbum auth login abc123
  familyalbum auth login abc123 --verify`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("login accepts at most one id token")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts, args, verify)
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "log in to the album before storing the password")
	return cmd
}

func runLogin(cmd *cobra.Command, opts *rootOptions, args []string, verify bool) error {
	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(in)

	var idToken string
	if len(args) > 0 {
		idToken = strings.TrimSpace(args[0])
	}
	if idToken == "" {
		fmt.Fprint(out, "Album id token: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read id token: %w", err)
		}
		idToken = strings.TrimSpace(line)
	}
	if idToken == "" {
		return usageErrorf("album id token is required")
	}

	fmt.Fprint(out, "Album password: ")
	password, err := readSecret(in, reader)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return usageErrorf("album password is required")
	}

	if verify {
		cfg, err := loadConfig(cmd, opts)
		if err != nil {
			return err
		}
		cfg.Album.IDToken = idToken
		cfg.Album.Password = password

		client, err := mitene.NewClient(cfg, pagemodel.New(), logger.GetLogger())
		if err != nil {
			return err
		}
		if err := client.Login(cmd.Context()); err != nil {
			return fmt.Errorf("password not stored: %w", err)
		}
	}

	manager, err := newCredentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	if err := manager.Store(&auth.Album{IDToken: idToken, Password: password}); err != nil {
		return err
	}

	ui.NewPrinter(out).Success("Password stored for album " + auth.SanitizeAlbum(&auth.Album{IDToken: idToken}).IDToken)
	return nil
}

func newLogoutCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout [id-token]",
		Short: "Remove a stored album password",
		Example: `  familyalbum auth logout abc123
  familyalbum auth logout --all`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return usageErrorf("--all does not take an id token")
			}
			if !all && len(args) != 1 {
				return usageErrorf("logout needs an id token or --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newCredentialManager()
			if err != nil {
				return fmt.Errorf("failed to initialize credential manager: %w", err)
			}

			p := ui.NewPrinter(cmd.OutOrStdout())
			if all {
				if err := manager.DeleteAll(); err != nil {
					return err
				}
				p.Success("All stored album passwords removed")
				return nil
			}

			if err := manager.Delete(args[0]); err != nil {
				return err
			}
			p.Success("Password removed for album " + auth.SanitizeAlbum(&auth.Album{IDToken: args[0]}).IDToken)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "remove every stored album password")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List albums with a stored password",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := newCredentialManager()
			if err != nil {
				return fmt.Errorf("failed to initialize credential manager: %w", err)
			}

			albums, err := manager.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := ui.NewPrinter(out)
			if len(albums) == 0 {
				p.Dim("No stored albums. Use 'familyalbum auth login' to add one.")
				return nil
			}

			p.Title("Stored albums")
			for i, album := range albums {
				sanitized := auth.SanitizeAlbum(album)
				fmt.Fprintf(out, "%d. %s (updated %s)\n", i+1, sanitized.IDToken, sanitized.LastModified.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

// readSecret reads a line without echo when in is a terminal
func readSecret(in io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
