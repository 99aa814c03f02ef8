// Package cmd implements the relayctl commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/myansiry/chatrelay/clients/go/chatrelay"
	"github.com/myansiry/chatrelay/internal/models"
)

var (
	serverURL string
	roomID    string
	userName  string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Command line client for the chat relay",
	Long: `relayctl joins rooms, posts messages and polls history on a chat relay server.

Environment:
  CHATRELAY_URL      Server URL (default: http://localhost:3000)
  CHATRELAY_CONFIG   Config directory holding the local identity (default: ~/.chatrelay)`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultURL := os.Getenv("CHATRELAY_URL")
	if defaultURL == "" {
		defaultURL = chatrelay.DefaultBaseURL
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultURL, "chat relay server URL")
	rootCmd.PersistentFlags().StringVarP(&roomID, "room", "r", "lobby", "room id")
	rootCmd.PersistentFlags().StringVarP(&userName, "name", "n", os.Getenv("USER"), "display name")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
}

// newClient returns a client carrying the persisted identity.
func newClient() (*chatrelay.Client, error) {
	c := chatrelay.NewClient(serverURL)
	if err := c.EnsureIdentity(); err != nil {
		return nil, fmt.Errorf("load identity: %w", err)
	}
	return c, nil
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printMessage(w io.Writer, m models.Message) {
	ts := time.UnixMilli(m.Timestamp).Format("2006-01-02 15:04:05")
	if m.Type == models.MessageTypeSystem {
		fmt.Fprintf(w, "[%s] * %s\n", ts, m.Text)
		return
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", ts, m.UserName, m.Text)
}
