package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatguard-server/internal/auth"
	"github.com/vovakirdan/chatguard-server/internal/config"
	"github.com/vovakirdan/chatguard-server/internal/log"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a moderator token using the configured JWT secret",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := config.Load(log.New("warn", "console"), configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		token, err := auth.NewService(cfg.Auth).Issue(auth.RoleModerator)
		if err != nil {
			if errors.Is(err, auth.ErrLoginDisabled) {
				return errors.New("auth.jwt_secret is not set; moderation endpoints are open")
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for auth.moderator_password_hash",
	Long:  "Hashes the given password, or the first line of stdin when no argument is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}
