package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"projecthub/client"
)

const defaultServer = "http://localhost:5000"

// app holds what every command needs: the output writer and a lazily built client.
type app struct {
	out     io.Writer
	in      *bufio.Reader
	server  string
	session string
	timeout time.Duration
	verbose bool

	client *client.Client
}

func (a *app) api() (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	var store client.SessionStore
	if a.session != "" {
		store = &client.FileStore{Path: a.session}
	} else {
		fs, err := client.DefaultFileStore()
		if err != nil {
			return nil, fmt.Errorf("locate session file: %w", err)
		}
		store = fs
	}
	a.client = client.New(a.server, client.Options{Timeout: a.timeout, Store: store})
	return a.client, nil
}

// restored returns a client with the stored session loaded and verified.
func (a *app) restored(ctx context.Context) (*client.Client, error) {
	c, err := a.api()
	if err != nil {
		return nil, err
	}
	if _, err := c.Restore(ctx); err != nil {
		if errors.Is(err, client.ErrNoSession) {
			return nil, errors.New("not signed in; run `hubctl login` first")
		}
		return nil, err
	}
	return c, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	cmd := &cobra.Command{
		Use:           "hubctl",
		Short:         "Work with projects, tasks and comments from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetOutput(os.Stderr)
			if a.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
		},
	}

	server := os.Getenv("HUBCTL_SERVER")
	if server == "" {
		server = defaultServer
	}
	cmd.PersistentFlags().StringVar(&a.server, "server", server, "API base URL (env HUBCTL_SERVER)")
	cmd.PersistentFlags().StringVar(&a.session, "session-file", "", "Session file (default: user config dir)")
	cmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Second, "Request timeout")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProfileCmd(a),
		newPasswordCmd(a),
		newUsersCmd(a),
		newDashboardCmd(a),
		newProjectsCmd(a),
		newProjectCmd(a),
		newTaskCmd(a),
		newCommentCmd(a),
		newDoneCmd(a),
	)
	return cmd
}

// prompt reads a line from the command's input when value is empty.
func (a *app) prompt(cmd *cobra.Command, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if a.in == nil {
		a.in = bufio.NewReader(cmd.InOrStdin())
	}
	fmt.Fprint(a.out, label+": ")
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return line, nil
}

// promptSecret is prompt with echo turned off when input is a terminal.
func (a *app) promptSecret(cmd *cobra.Command, label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return a.prompt(cmd, label, value)
	}

	fmt.Fprint(a.out, label+": ")
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	value = strings.TrimSpace(string(secret))
	if value == "" {
		return "", fmt.Errorf("%s is required", strings.ToLower(label))
	}
	return value, nil
}
