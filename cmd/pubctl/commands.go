package main

import (
	"fmt"
	"strings"

	"github.com/pubshare/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	seedName     string
	seedPassword string
	pageFlag     int
	perPageFlag  int
)

// seedUserCmd creates an account through the regular signup path
var seedUserCmd = &cobra.Command{
	Use:   "seed-user <email>",
	Short: "Create a user account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		user, err := s.lib.Auth.Signup(cmd.Context(), service.SignupInput{
			Email:           args[0],
			Password:        seedPassword,
			PasswordConfirm: seedPassword,
			Name:            seedName,
		})
		if err != nil {
			return fmt.Errorf("%s", service.Failure[any](err).DisplayError())
		}
		s.logger.Info("user created", zap.String("id", user.ID), zap.String("email", args[0]))
		return printJSON(cmd.OutOrStdout(), user)
	},
}

// feedCmd prints one page of the public feed
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "List public publications, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		page, err := s.lib.Publications.List(cmd.Context(), pageFlag, perPageFlag)
		if err != nil {
			return fmt.Errorf("%s", service.Failure[any](err).DisplayError())
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

// searchCmd searches title, abstract and keywords
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search public publications",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		page, err := s.lib.Publications.Search(cmd.Context(), strings.Join(args, " "), pageFlag, perPageFlag)
		if err != nil {
			return fmt.Errorf("%s", service.Failure[any](err).DisplayError())
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

// showCmd prints a publication with its co-authors and files
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a publication with its co-authors and files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		pub, err := s.lib.Publications.Get(ctx, args[0])
		if err != nil {
			return fmt.Errorf("%s", service.Failure[any](err).DisplayError())
		}
		if pub.CoAuthors, err = s.lib.CoAuthors.List(ctx, pub.ID); err != nil {
			return fmt.Errorf("%s", service.Failure[any](err).DisplayError())
		}
		files, err := s.lib.Files.List(ctx, pub.ID)
		if err != nil {
			return fmt.Errorf("%s", service.Failure[any](err).DisplayError())
		}
		return printJSON(cmd.OutOrStdout(), struct {
			*service.Publication
			Files []service.PublicationFile `json:"files"`
		}{pub, files})
	},
}

func init() {
	seedUserCmd.Flags().StringVar(&seedName, "name", "", "display name")
	seedUserCmd.Flags().StringVar(&seedPassword, "user-password", "", "password of the new account (8-72 characters)")
	_ = seedUserCmd.MarkFlagRequired("name")
	_ = seedUserCmd.MarkFlagRequired("user-password")

	for _, cmd := range []*cobra.Command{feedCmd, searchCmd} {
		cmd.Flags().IntVar(&pageFlag, "page", 1, "page number")
		cmd.Flags().IntVar(&perPageFlag, "per-page", 10, "items per page")
	}
}
