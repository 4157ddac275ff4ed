package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/shop-ai/internal/service/auth"
)

func tokenCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwtSecret must be set to issue tokens")
			}
			tokens, err := auth.NewTokenService(&cfg.Auth)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
