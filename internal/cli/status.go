package cli

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/mcoot/nethang/internal/api/request"
	"github.com/mcoot/nethang/internal/api/response"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the lobby, the running game and connected players",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Status
			if err := client.Get(cmd.Context(), "/api/v1/status", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newKickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kick <nickname>",
		Short: "Disconnect a player (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Action
			path := "/api/v1/players/" + url.PathEscape(args[0]) + "/kick"
			if err := client.Post(cmd.Context(), path, nil, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newBanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ban <address>",
		Short: "Ban a client IP address and disconnect its players (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Action
			body := request.BanRequest{Address: args[0]}
			if err := client.Post(cmd.Context(), "/api/v1/bans", body, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}
