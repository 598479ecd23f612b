package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"medconnect-server/internal/entityclient"
	"medconnect-server/internal/seed"
)

const entityTimeout = 30 * time.Second

type entityFlags struct {
	baseURL string
	token   string
	filters []string
	sort    string
	limit   int
	data    string
}

func entitiesCmd(a *app) *cobra.Command {
	f := &entityFlags{}

	cmd := &cobra.Command{
		Use:   "entities",
		Short: "Query the entity API of a running server",
	}
	cmd.PersistentFlags().StringVar(&f.baseURL, "base-url", "", "API root (default http://localhost:$PORT/api/v1)")
	cmd.PersistentFlags().StringVar(&f.token, "token", "", "Admin access token (default $MEDCONNECT_TOKEN)")

	list := &cobra.Command{
		Use:   "list <entity>",
		Short: "List records, falling back to sample data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := f.query()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), entityTimeout)
			defer cancel()
			records, err := f.client(a).Filter(ctx, args[0], q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
	list.Flags().StringArrayVar(&f.filters, "filter", nil, "Exact match as field=value; repeatable")
	list.Flags().StringVar(&f.sort, "sort", "", "Sort field, prefix with - for descending")
	list.Flags().IntVar(&f.limit, "limit", 0, "Maximum records")

	get := &cobra.Command{
		Use:   "get <entity> <id>",
		Short: "Fetch one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), entityTimeout)
			defer cancel()
			record, err := f.client(a).Get(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), record)
		},
	}

	create := &cobra.Command{
		Use:   "create <entity>",
		Short: "Create a record from a JSON object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := readRecord(f.data, cmd.InOrStdin())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), entityTimeout)
			defer cancel()
			created, err := f.client(a).Create(ctx, args[0], record)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	create.Flags().StringVar(&f.data, "data", "", "JSON object, or - to read stdin")

	update := &cobra.Command{
		Use:   "update <entity> <id>",
		Short: "Update a record from a JSON object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := readRecord(f.data, cmd.InOrStdin())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), entityTimeout)
			defer cancel()
			updated, err := f.client(a).Update(ctx, args[0], args[1], record)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), updated)
		},
	}
	update.Flags().StringVar(&f.data, "data", "", "JSON object, or - to read stdin")

	del := &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), entityTimeout)
			defer cancel()
			if err := f.client(a).Delete(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", args[0], args[1])
			return nil
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

func (f *entityFlags) client(a *app) *entityclient.Client {
	base := f.baseURL
	if base == "" {
		base = "http://localhost:" + a.cfg.Port + "/api/v1"
	}
	token := f.token
	if token == "" {
		token = os.Getenv("MEDCONNECT_TOKEN")
	}
	return entityclient.New(base,
		entityclient.WithToken(token),
		entityclient.WithSamples(seed.Samples()),
		entityclient.WithLogger(a.logger),
	)
}

func (f *entityFlags) query() (entityclient.Query, error) {
	q := entityclient.Query{Sort: f.sort, Limit: f.limit}
	if len(f.filters) > 0 {
		q.Filters = make(map[string]string, len(f.filters))
	}
	for _, kv := range f.filters {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return q, fmt.Errorf("invalid --filter %q, expected field=value", kv)
		}
		q.Filters[k] = v
	}
	return q, nil
}

func readRecord(data string, stdin io.Reader) (entityclient.Record, error) {
	raw := []byte(data)
	if data == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("--data is required")
	}
	var record entityclient.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("--data is not a JSON object: %w", err)
	}
	return record, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
