package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/DukeRupert/lingua/internal/webclient"
)

var (
	serverURL   string
	markersPath string
	logLevel    string

	loginEmail    string
	loginPassword string
)

func init() {
	sessionCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Lingua server URL")
	sessionCmd.PersistentFlags().StringVar(&markersPath, "markers", defaultMarkersPath(), "file holding the session markers")
	sessionCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level for background requests")

	sessionLoginCmd.Flags().StringVar(&loginEmail, "email", "", "account email (required)")
	sessionLoginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (required)")
	_ = sessionLoginCmd.MarkFlagRequired("email")
	_ = sessionLoginCmd.MarkFlagRequired("password")

	sessionCmd.AddCommand(sessionLoginCmd)
	sessionCmd.AddCommand(sessionLogoutCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
	rootCmd.AddCommand(sessionCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Sign in and out against a running server",
	Long: `Sign in and out the way the browser client does. The token and user
markers are kept in a local file between runs.

Examples:
  lingua-admin session login --email ana@example.com --password secret
  lingua-admin session logout`,
}

var sessionLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session markers",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newWebClient(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer client.Close()

		user, err := client.Login(cmd.Context(), loginEmail, loginPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Email, user.Role)
		return nil
	},
}

var sessionLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the session markers and notify the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newWebClient(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		client.TriggerLogout()
		client.Close()
		return nil
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session markers",
	RunE: func(cmd *cobra.Command, args []string) error {
		markers := webclient.NewFileMarkers(markersPath)
		if _, ok := markers.Get(webclient.MarkerToken); !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		}
		user, _ := markers.Get(webclient.MarkerUser)
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in: %s\n", user)
		return nil
	},
}

func newWebClient(out io.Writer) (*webclient.Client, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(logLevel)}))
	nav := webclient.NavigatorFunc(func(path string) {
		fmt.Fprintf(out, "Redirect: %s%s\n", serverURL, path)
	})
	return webclient.New(webclient.Config{BaseURL: serverURL}, webclient.NewFileMarkers(markersPath), nav, logger)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return level
}

func defaultMarkersPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".lingua-session.json"
	}
	return filepath.Join(dir, "lingua", "session.json")
}
