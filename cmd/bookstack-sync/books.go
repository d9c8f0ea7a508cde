package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/faithconnect/bookstack-sync/internal/domain"
	"github.com/faithconnect/bookstack-sync/internal/service"
)

func newBooksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "books [book-id]",
		Short: "List source books, or show one with its contents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := invoke[*service.CatalogService](a)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				id, err := parseBookID(args[0])
				if err != nil {
					return err
				}
				book, err := catalog.GetBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.printBook(book)
			}

			books, err := catalog.ListBooks(cmd.Context())
			if err != nil {
				return err
			}
			if a.asJSON {
				if books == nil {
					books = []domain.Book{}
				}
				return a.printJSON(books)
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSLUG")
			for _, b := range books {
				fmt.Fprintf(w, "%d\t%s\t%s\n", b.ID, b.Name, b.Slug)
			}
			return w.Flush()
		},
	}
}

func (a *app) printBook(book *domain.Book) error {
	if a.asJSON {
		return a.printJSON(book)
	}

	fmt.Fprintf(a.out, "%d %s\n", book.ID, book.Name)
	for _, t := range book.Tags {
		if t.Value != "" {
			fmt.Fprintf(a.out, "  tag %s=%s\n", t.Name, t.Value)
		} else {
			fmt.Fprintf(a.out, "  tag %s\n", t.Name)
		}
	}
	for _, c := range book.Contents {
		fmt.Fprintf(a.out, "  %s %d %s\n", c.Kind, c.ID, c.Name)
		for _, p := range c.Pages {
			fmt.Fprintf(a.out, "    page %d %s\n", p.ID, p.Name)
		}
	}
	return nil
}

func parseBookID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("book id must be a positive integer, got %q", s)
	}
	return id, nil
}
