package cli

import (
	"adventcal/auth"
	"adventcal/models"
	"fmt"

	"github.com/spf13/cobra"
)

// Sign-in providers accepted by --provider.
const (
	providerServer   = "server"
	providerFirebase = "firebase"
)

func newSigninCmd(opts *options) *cobra.Command {
	var providerName, apiKey, toolkitURL string
	signinCmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in anonymously and print the credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var provider auth.Provider
			switch providerName {
			case providerServer:
				provider = auth.NewServerProvider(opts.server)
			case providerFirebase:
				if apiKey == "" {
					return fmt.Errorf("--api-key or ADVENT_FIREBASE_API_KEY required for the firebase provider")
				}
				provider = auth.NewIdentityToolkitProvider(toolkitURL, apiKey)
			default:
				return fmt.Errorf("unknown provider %q (want %s or %s)", providerName, providerServer, providerFirebase)
			}

			session := auth.NewSession(provider)
			if _, err := session.SignInAnonymously(cmd.Context()); err != nil {
				return err
			}
			id := session.CurrentUser()
			if id == nil {
				return auth.ErrUnknownIdentity
			}

			return printJSON(cmd.OutOrStdout(), models.AuthResponse{
				UserID:        id.UID,
				Token:         id.Token,
				RefreshSecret: id.RefreshSecret,
				ExpiresAt:     id.ExpiresAt.UTC(),
			})
		},
	}
	signinCmd.Flags().StringVar(&providerName, "provider", providerServer, "Identity provider: server or firebase")
	signinCmd.Flags().StringVar(&apiKey, "api-key", opts.cfg.FirebaseAPIKey, "Firebase web API key")
	signinCmd.Flags().StringVar(&toolkitURL, "toolkit-url", "", "Identity Toolkit base URL override")
	return signinCmd
}

func newMeCmd(opts *options) *cobra.Command {
	var displayName string
	var clearName bool
	meCmd := &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in user, optionally updating the display name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.connect(cmd)
			if err != nil {
				return err
			}

			var user models.User
			switch {
			case clearName:
				user, err = c.SetDisplayName(cmd.Context(), nil)
			case cmd.Flags().Changed("name"):
				user, err = c.SetDisplayName(cmd.Context(), &displayName)
			default:
				user, err = c.Me(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), user)
		},
	}
	meCmd.Flags().StringVarP(&displayName, "name", "n", "", "Set the display name")
	meCmd.Flags().BoolVar(&clearName, "clear-name", false, "Clear the display name")
	meCmd.MarkFlagsMutuallyExclusive("name", "clear-name")
	return meCmd
}
