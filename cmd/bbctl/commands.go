package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/domain"
	"github.com/bookbridge/bookbridge-server/internal/service"
)

func newUserCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var fullName, password string
	create := &cobra.Command{
		Use:   "create <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, a *app, args []string) error {
			if password == "" {
				p, err := readPassword(os.Stdin, a.out, "Password: ")
				if err != nil {
					return err
				}
				password = p
			}
			resp, err := a.auth.SignUp(ctx, service.SignUpRequest{
				Email:    args[0],
				Password: password,
				FullName: fullName,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "created %s %s\n", resp.User.ID, resp.User.Email)
			return nil
		}),
	}
	create.Flags().StringVar(&fullName, "name", "", "Full name shown in the navigation bar")
	create.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")

	cmd.AddCommand(create)
	return cmd
}

// readPassword reads a password without echo when in is a terminal, and a
// single line otherwise.
func readPassword(in *os.File, out io.Writer, prompt string) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(out, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// exchangeView is what `exchange show` prints.
type exchangeView struct {
	Request  *domain.BookRequest    `json:"request"`
	Exchange *domain.ExchangeRecord `json:"exchange,omitempty"`
}

func newExchangeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Inspect contact exchanges",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <request-id>",
		Short: "Print a request and its exchange record",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, a *app, args []string) error {
			req, err := a.store.GetRequest(ctx, args[0])
			if err != nil {
				return fmt.Errorf("request %s: %w", args[0], err)
			}
			view := exchangeView{Request: req}
			rec, err := a.store.GetExchange(ctx, req.ID)
			switch {
			case err == nil:
				view.Exchange = rec
			case !errors.Is(err, backend.ErrNotFound):
				return fmt.Errorf("exchange for %s: %w", req.ID, err)
			}
			return printJSON(a.out, view)
		}),
	})
	return cmd
}

func newWatermarkCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watermark",
		Short: "Inspect or reset when a user last opened their requests",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <user-id>",
			Short: "Print the requests watermark",
			Args:  cobra.ExactArgs(1),
			RunE: c.run(func(_ context.Context, a *app, args []string) error {
				at, err := a.watermarks.Get(args[0])
				if err != nil {
					return err
				}
				if at == nil {
					fmt.Fprintln(a.out, "never visited")
					return nil
				}
				fmt.Fprintln(a.out, at.UTC().Format(time.RFC3339))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print every stored watermark",
			Args:  cobra.NoArgs,
			RunE: c.run(func(_ context.Context, a *app, _ []string) error {
				all, err := a.watermarks.All()
				if err != nil {
					return err
				}
				users := make([]string, 0, len(all))
				for id := range all {
					users = append(users, id)
				}
				slices.Sort(users)
				for _, id := range users {
					fmt.Fprintf(a.out, "%s %s\n", id, all[id].UTC().Format(time.RFC3339))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "reset <user-id>",
			Short: "Forget the watermark so every pending request counts as new",
			Args:  cobra.ExactArgs(1),
			RunE: c.run(func(_ context.Context, a *app, args []string) error {
				if err := a.watermarks.Clear(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "watermark cleared for %s\n", args[0])
				return nil
			}),
		},
	)
	return cmd
}

func newNotificationsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Inspect notifications",
	}

	var limit int
	unread := &cobra.Command{
		Use:   "unread <user-id>",
		Short: "Print the unread count and the latest notifications",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(func(ctx context.Context, a *app, args []string) error {
			n, err := a.notifications.UnreadCount(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d unread\n", n)

			list, err := a.notifications.List(ctx, args[0], limit)
			if err != nil {
				return err
			}
			for _, item := range list {
				mark := " "
				if !item.Read {
					mark = "*"
				}
				fmt.Fprintf(a.out, "%s %s %-16s %s\n", mark, item.CreatedAt.Format("2006-01-02 15:04"), item.Type, item.Message)
			}
			return nil
		}),
	}
	unread.Flags().IntVar(&limit, "limit", 10, "Notifications to list")

	cmd.AddCommand(unread)
	return cmd
}

func newReindexCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the catalog search index from the database",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, _ []string) error {
			n, err := a.catalog.Rebuild(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "indexed %d books\n", n)
			return nil
		}),
	}
}
