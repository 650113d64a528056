package main

import (
	"carebot/internal/config"
	"carebot/internal/oauth/facebook"
	"fmt"

	"github.com/spf13/cobra"
)

type oauthOptions struct {
	config      string
	appID       string
	redirectURL string
	scopes      []string
	state       string
}

var oauthFlags oauthOptions

var oauthCmd = &cobra.Command{
	Use:   "oauth-url",
	Short: "Print the Facebook login URL for connecting a page",
	Long: `Print the Facebook login dialog URL for connecting the chatbot to a page.

Flags override the facebook section of --config when both are given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fc, err := oauthConfig(cmd)
		if err != nil {
			return err
		}
		u, _, err := facebook.AuthURL(fc)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), facebook.Instructions(u))
		return nil
	},
}

func init() {
	f := oauthCmd.Flags()
	f.StringVar(&oauthFlags.config, "config", "", "optional config file with a facebook section")
	f.StringVar(&oauthFlags.appID, "app-id", "", "Facebook app id")
	f.StringVar(&oauthFlags.redirectURL, "redirect-url", "", "OAuth redirect URL registered for the app")
	f.StringSliceVar(&oauthFlags.scopes, "scope", nil, "permission to request (repeatable)")
	f.StringVar(&oauthFlags.state, "state", "", "state value echoed on redirect (random when empty)")
	rootCmd.AddCommand(oauthCmd)
}

func oauthConfig(cmd *cobra.Command) (facebook.Config, error) {
	var fc facebook.Config
	if oauthFlags.config != "" {
		cfg, err := config.NewConfigManager(oauthFlags.config).Load()
		if err != nil {
			return fc, err
		}
		fc.AppID = cfg.Facebook.AppID
		fc.RedirectURL = cfg.Facebook.RedirectURL
		fc.Scopes = cfg.Facebook.Scopes
	}
	f := cmd.Flags()
	if f.Changed("app-id") {
		fc.AppID = oauthFlags.appID
	}
	if f.Changed("redirect-url") {
		fc.RedirectURL = oauthFlags.redirectURL
	}
	if f.Changed("scope") {
		fc.Scopes = oauthFlags.scopes
	}
	fc.State = oauthFlags.state
	return fc, nil
}
