package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"projecthub/client"
	"projecthub/normalize"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email, err = a.prompt(cmd, "Email", email); err != nil {
				return err
			}
			if password, err = a.promptSecret(cmd, "Password", password); err != nil {
				return err
			}

			c, err := a.api()
			if err != nil {
				return err
			}
			s, err := c.Login(context.Background(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, StyleGreen.Render("Signed in as ")+renderUser(s.User))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if name, err = a.prompt(cmd, "Name", name); err != nil {
				return err
			}
			if email, err = a.prompt(cmd, "Email", email); err != nil {
				return err
			}
			if password, err = a.promptSecret(cmd, "Password", password); err != nil {
				return err
			}

			c, err := a.api()
			if err != nil {
				return err
			}
			s, err := c.Register(context.Background(), name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, StyleGreen.Render("Registered ")+renderUser(s.User))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (at least 8 characters)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.api()
			if err != nil {
				return err
			}
			// A stale session is still cleared locally.
			_, _ = c.Restore(ctx)
			if err := c.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.restored(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, renderUser(c.Session().User))
			return nil
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your name and email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.restored(ctx)
			if err != nil {
				return err
			}

			var in client.ProfileInput
			if cmd.Flags().Changed("name") {
				in.Name = &name
			}
			if cmd.Flags().Changed("email") {
				in.Email = &email
			}
			if in.Name == nil && in.Email == nil {
				fmt.Fprintln(a.out, renderUser(c.Session().User))
				return nil
			}

			user, err := c.UpdateProfile(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, StyleGreen.Render("Profile updated: ")+renderUser(user))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New display name")
	cmd.Flags().StringVar(&email, "email", "", "New email")
	return cmd
}

func newPasswordCmd(a *app) *cobra.Command {
	var current, next string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.restored(ctx)
			if err != nil {
				return err
			}
			if current, err = a.promptSecret(cmd, "Current password", current); err != nil {
				return err
			}
			if next, err = a.promptSecret(cmd, "New password", next); err != nil {
				return err
			}
			if err := c.UpdatePassword(ctx, current, next); err != nil {
				return err
			}
			fmt.Fprintln(a.out, StyleGreen.Render("Password updated."))
			return nil
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Current password")
	cmd.Flags().StringVar(&next, "new", "", "New password (at least 8 characters)")
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List accounts (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.restored(ctx)
			if err != nil {
				return err
			}
			users, err := c.Users(ctx)
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Fprintln(a.out, renderUser(u)+" "+StyleDim.Render(u.ID))
			}
			return nil
		},
	}
}

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Recent projects and tasks assigned to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.restored(ctx)
			if err != nil {
				return err
			}
			view, err := c.LoadDashboard(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderDashboard(view))
			return nil
		},
	}
}

func newProjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.restored(ctx)
			if err != nil {
				return err
			}
			view, err := c.LoadProjectList(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderProjectList(view))
			return nil
		},
	}
}

func newProjectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "project <id>",
		Short: "Show a project with its members and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.restored(ctx)
			if err != nil {
				return err
			}
			view, err := c.LoadProjectDetail(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderProjectDetail(view))
			return nil
		},
	}
}

func newTaskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "task <id>",
		Short: "Show a task with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.restored(ctx)
			if err != nil {
				return err
			}
			view, err := c.LoadTaskDetail(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderTaskDetail(view))
			return nil
		},
	}
}

func newCommentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <taskId> <text>",
		Short: "Comment on a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.restored(ctx)
			if err != nil {
				return err
			}
			comment, err := c.CreateComment(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, StyleGreen.Render("Comment added: ")+comment.Text)
			return nil
		},
	}
}

func newDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <taskId>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := a.restored(ctx)
			if err != nil {
				return err
			}
			status := normalize.TaskDone
			task, err := c.UpdateTask(ctx, args[0], client.TaskInput{Status: &status})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, StyleGreen.Render("Done: ")+task.Title)
			return nil
		},
	}
}
