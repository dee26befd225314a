package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cweiture/blink-lapse/internal/auth"
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Blink and cache the session token",
	Long: `Performs a fresh login even when a cached token exists, walking through
client verification (the emailed or texted PIN) when Blink asks for it,
and rewrites the credential cache for the capture loop to use.

Credentials come from BLINK_USERNAME and BLINK_PASSWORD (or a .env file);
anything missing is prompted for.

Example:
  blink-lapse login --credentials .credentials.json`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		// Clear the cached token so the dial takes the interactive path,
		// but keep the unique client ID so Blink does not demand a new
		// PIN for an install it already trusts.
		store := auth.NewStore(cfg.Credentials)
		if creds := store.Load(); creds != nil {
			creds.Token = ""
			if err := store.Save(creds); err != nil {
				log.Fatal().Err(err).Msg("failed to clear credential cache")
			}
		}

		session, err := newConnector(cfg).Dial(cmd.Context())
		if err != nil {
			log.Fatal().Err(err).Msg("login failed")
		}

		fmt.Printf("Login successful. %d cameras visible.\n", len(session.Cameras()))
		fmt.Printf("Token cached at %s. You can now run 'blink-lapse capture'.\n", cfg.Credentials)
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}
