package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jpalmerr/paperless"
	"github.com/jpalmerr/paperless/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// setupCmd runs the setup flow and appends the new entry to the config file.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Add a Paperless-NG instance to the config file",
	Long: `Exchange a username and password for an API token and add the instance
to the config file. The file is created if it does not exist.

The password is read from --password-file, or prompted for on the terminal
without echo. The password itself is never stored; only the token is.

An instance whose token is already in the file is not added twice.

Example:
  paperless-sensor setup -c paperless.yaml --host docs.local --username me
  paperless-sensor setup -c paperless.yaml --host docs.local --port 443 --ssl \
      --username me --password-file ./pw --todo-tag inbox`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)

	f := setupCmd.Flags()
	f.StringP("config", "c", "", "path to config file (required)")
	f.String("host", "", "Paperless-NG host (required)")
	f.String("port", paperless.DefaultPort, "Paperless-NG port")
	f.Bool("ssl", false, "connect with https")
	f.String("username", "", "Paperless-NG username (required)")
	f.String("password-file", "", "read the password from this file instead of prompting")
	f.String("todo-tag", "", "tag whose documents are reported as to-do")
	_ = setupCmd.MarkFlagRequired("config")
	_ = setupCmd.MarkFlagRequired("host")
	_ = setupCmd.MarkFlagRequired("username")
}

func runSetup(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	configFile, _ := f.GetString("config")
	passwordFile, _ := f.GetString("password-file")

	password, err := readPassword(cmd, passwordFile)
	if err != nil {
		return err
	}

	input := &paperless.UserInput{Password: password}
	input.Host, _ = f.GetString("host")
	input.Port, _ = f.GetString("port")
	input.SSL, _ = f.GetBool("ssl")
	input.Username, _ = f.GetString("username")
	input.TodoTag, _ = f.GetString("todo-tag")

	auth := paperless.NewAuthenticator(paperless.WithClientLogger(logger))
	defer auth.Close()

	flow := paperless.NewConfigFlow(auth, config.NewFileRegistry(configFile), logger)
	res := flow.Step(cmd.Context(), input)

	out := cmd.OutOrStdout()
	switch res.Type {
	case paperless.ResultCreateEntry:
		fmt.Fprintf(out, "Added %s\n", res.Title)
		fmt.Fprintf(out, "  Entry:  %s\n", res.Entry.EntryID)
		fmt.Fprintf(out, "  Sensor: %s\n", res.Entry.Session().EntityName())
		fmt.Fprintf(out, "  Config: %s\n", configFile)
		return nil
	case paperless.ResultAbort:
		fmt.Fprintf(out, "Not added: %s\n", strings.ReplaceAll(res.Reason, "_", " "))
		return nil
	default:
		return fmt.Errorf("setup failed: %s", describeFormError(res.Errors["base"]))
	}
}

// describeFormError turns a form error tag into a message for the terminal.
func describeFormError(tag string) string {
	switch tag {
	case paperless.ErrorCannotConnect:
		return "cannot connect to the server (cannot_connect)"
	case paperless.ErrorInvalidAuth:
		return "invalid username or password (invalid_auth)"
	default:
		return "unexpected error, see log (unknown)"
	}
}

// readPassword reads the password from passwordFile, or prompts for it on
// the terminal when passwordFile is empty or "-".
func readPassword(cmd *cobra.Command, passwordFile string) (string, error) {
	if passwordFile != "" && passwordFile != "-" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading password file: %w", err)
		}
		// strip trailing newlines from echo/printf pipelines
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal available for interactive password prompt (use --password-file)")
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}
