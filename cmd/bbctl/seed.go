package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	domainerrors "github.com/bookbridge/bookbridge-server/internal/errors"
	"github.com/bookbridge/bookbridge-server/internal/service"
)

type seedUser struct {
	email    string
	fullName string
	books    []service.DonateBookRequest
}

var seedUsers = []seedUser{
	{
		email:    "ada@example.com",
		fullName: "Ada Lovelace",
		books: []service.DonateBookRequest{
			{Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", Condition: "Good"},
			{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Category: "Science Fiction", IsFreeToRead: true},
		},
	},
	{
		email:    "bea@example.com",
		fullName: "Bea Arthur",
		books: []service.DonateBookRequest{
			{Title: "Emma", Author: "Jane Austen", Category: "Classics", IsFreeToRead: true},
		},
	},
	{
		email:    "carol@example.com",
		fullName: "Carol Shields",
	},
}

func newSeedCmd(c *cli) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo users, donated books and one pending request",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, a *app, _ []string) error {
			return seed(ctx, a, password)
		}),
	}
	cmd.Flags().StringVar(&password, "password", "bookbridge-demo", "Password for every demo user")
	return cmd
}

func seed(ctx context.Context, a *app, password string) error {
	ids := make(map[string]string, len(seedUsers))
	var firstBook string

	for _, u := range seedUsers {
		resp, err := a.auth.SignUp(ctx, service.SignUpRequest{
			Email:    u.email,
			Password: password,
			FullName: u.fullName,
		})
		if err != nil {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) && domainErr.Code == domainerrors.CodeAlreadyExists {
				fmt.Fprintf(a.out, "skip %s: already seeded\n", u.email)
				continue
			}
			return fmt.Errorf("create %s: %w", u.email, err)
		}
		ids[u.email] = resp.User.ID
		fmt.Fprintf(a.out, "user %s %s\n", resp.User.ID, u.email)

		for _, b := range u.books {
			book, err := a.catalog.Donate(ctx, resp.User.ID, b)
			if err != nil {
				return fmt.Errorf("donate %q: %w", b.Title, err)
			}
			if firstBook == "" {
				firstBook = book.ID
			}
			fmt.Fprintf(a.out, "book %s %q\n", book.ID, book.Title)
		}
	}

	requester, ok := ids["bea@example.com"]
	if !ok || firstBook == "" {
		return nil
	}
	req, err := a.requests.Create(ctx, requester, firstBook, service.CreateRequestInput{
		Message: "I've wanted to read this for years.",
	})
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	fmt.Fprintf(a.out, "request %s %s\n", req.ID, req.Status)
	return nil
}
