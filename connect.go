package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// envPassword supplies the connect password without putting it on the
// command line.
const envPassword = "DAVNOTES_PASSWORD"

var errConnectFailed = errors.New("connection failed (see log for the cause)")

func newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <server-url>",
		Short: "Connect to a WebDAV server and save the credentials",
		Long: `Connect to a WebDAV server, list the base folder and save the connection
so later commands reconnect on their own.

The password comes from --password or $DAVNOTES_PASSWORD. Nothing is saved
when the connection or the first listing fails.`,
		Args: cobra.ExactArgs(1),
		RunE: runConnect,
	}

	cmd.Flags().StringP("username", "u", "", "account name")
	cmd.Flags().StringP("password", "p", "", "password (prefer $"+envPassword+")")

	return cmd
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	username, err := cmd.Flags().GetString("username")
	if err != nil {
		return err
	}

	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("password") {
		password = os.Getenv(envPassword)
	}

	s, err := cc.openSession(ctx)
	if err != nil {
		return err
	}

	if !s.Connect(ctx, args[0], username, password) {
		return errConnectFailed
	}

	cc.Statusf("Connected to %s (folder %s)\n", s.ServerURL(), s.BasePath())

	return printEntries(cmd.OutOrStdout(), s.Listing().Entries, cc.Flags.JSON)
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved connection",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogout(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	s, err := cc.openSession(ctx)
	if err != nil {
		return err
	}

	server := s.ServerURL()

	if err := s.Logout(ctx); err != nil {
		return fmt.Errorf("removing saved credentials: %w", err)
	}

	if server == "" {
		cc.Statusf("No saved connection.\n")
	} else {
		cc.Statusf("Forgot connection to %s\n", server)
	}

	return nil
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the saved connection and whether the server is reachable",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	cmd.Flags().Bool("offline", false, "do not contact the server")

	return cmd
}

// statusOutput is the JSON schema of the status command. The password is
// never included.
type statusOutput struct {
	ServerURL   string `json:"server_url,omitempty"`
	Username    string `json:"username,omitempty"`
	BasePath    string `json:"base_path"`
	Record      string `json:"record"`
	Backend     string `json:"credentials_backend"`
	Connected   bool   `json:"connected"`
	ReadVia     string `json:"read_variant,omitempty"`
	WriteVia    string `json:"write_variant,omitempty"`
	ConfigFile  string `json:"config_file"`
	Credentials string `json:"credentials_path,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cc := mustCLIContext(ctx)

	offline, err := cmd.Flags().GetBool("offline")
	if err != nil {
		return err
	}

	s, err := cc.openSession(ctx)
	if err != nil {
		return err
	}

	out := statusOutput{
		ServerURL:   s.ServerURL(),
		Username:    s.Username(),
		BasePath:    s.BasePath(),
		Record:      s.RecordState().String(),
		Backend:     cc.Cfg.Credentials.Backend,
		ConfigFile:  cc.Cfg.Path,
		Credentials: cc.Cfg.CredentialsPath,
	}

	if !offline {
		out.Connected = s.EnsureConnected(ctx)
	}

	if out.Connected {
		read, write := s.Variants()
		out.ReadVia, out.WriteVia = read.String(), write.String()
	}

	w := cmd.OutOrStdout()

	if cc.Flags.JSON {
		return printJSON(w, out)
	}

	server := out.ServerURL
	if server == "" {
		server = "(none)"
	}

	state := "disconnected"

	switch {
	case offline:
		state = "not checked"
	case out.Connected:
		state = fmt.Sprintf("connected (read %s, write %s)", out.ReadVia, out.WriteVia)
	}

	fmt.Fprintf(w, "Server:      %s\n", server)

	if out.Username != "" {
		fmt.Fprintf(w, "Username:    %s\n", out.Username)
	}

	fmt.Fprintf(w, "Folder:      %s\n", out.BasePath)
	fmt.Fprintf(w, "Saved:       %s (%s)\n", out.Record, out.Backend)
	fmt.Fprintf(w, "Connection:  %s\n", state)

	return nil
}
