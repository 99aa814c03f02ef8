package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/myansiry/chatrelay/internal/models"
)

var (
	readLimit    int
	tailInterval time.Duration
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the server is online",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		resp, err := c.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", resp.Message, resp.Status)
		for _, e := range resp.Endpoints {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", e)
		}
		return nil
	},
}

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join the room",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		user, err := c.Join(ctx, roomID, userName)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Joined %s as %s (%s)\n", roomID, user.Name, user.ID)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Post a message to the room",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		msg, err := c.Send(ctx, roomID, userName, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Posted: %s\n", msg.ID)
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Print the room's recent messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		msgs, err := c.Messages(ctx, roomID, readLimit)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			printMessage(cmd.OutOrStdout(), m)
		}
		return nil
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List who joined the room",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := requestContext(cmd)
		defer cancel()

		users, err := c.Users(ctx, roomID)
		if err != nil {
			return err
		}
		for _, u := range users {
			joined := time.UnixMilli(u.JoinedAt).Format("2006-01-02 15:04:05")
			fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %s  joined %s\n", u.Name, u.ID, joined)
		}
		return nil
	},
}

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Poll the room and print new messages until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c.OnPollError = func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "poll failed, retrying: %v\n", err)
		}

		err = c.Poll(ctx, roomID, tailInterval, func(m models.Message) {
			printMessage(cmd.OutOrStdout(), m)
		})
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	readCmd.Flags().IntVarP(&readLimit, "limit", "l", 20, "number of messages")
	tailCmd.Flags().DurationVar(&tailInterval, "interval", 2*time.Second, "poll interval")

	rootCmd.AddCommand(healthCmd, joinCmd, sendCmd, readCmd, usersCmd, tailCmd)
}
