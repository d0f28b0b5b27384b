package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/syssam/scholar/engine"
	"github.com/syssam/scholar/privacy"
	"github.com/syssam/scholar/querylanguage"
)

// QueryOptions holds the flags of the query command.
type QueryOptions struct {
	*RootOptions
	Select string
	Where  string
	Order  []string
	Take   int
	Skip   int
	Tenant string
	User   string
	Roles  []string
	Count  bool
}

func newQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "query <entity>",
		Short: "Print the records of an entity as JSON",
		Long: `Run a findMany on an entity and print the records as JSON. Records
are confined to the tenant given by --tenant.

Example:
  scholar query Student --tenant t-1 --where '{"isActive": true}' \
    --select '{ firstName fees(where: {status: OVERDUE}) { amount } _count { classes } }'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.Select, "select", "s", "", "GraphQL selection set of the records")
	cmd.Flags().StringVar(&opts.Where, "where", "", "JSON object of field equalities")
	cmd.Flags().StringSliceVar(&opts.Order, "order", nil, "order fields, prefixed with - for descending")
	cmd.Flags().IntVar(&opts.Take, "take", 0, "records to return, negative to page backwards")
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "records to skip")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant id of the viewer")
	cmd.Flags().StringVar(&opts.User, "user", "cli", "user id of the viewer")
	cmd.Flags().StringSliceVar(&opts.Roles, "role", nil, "roles of the viewer")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "print the number of matching records")
	return cmd
}

func runQuery(cmd *cobra.Command, opts *QueryOptions, entity string) error {
	ctx := cmd.Context()
	where, err := whereArg(opts.Where)
	if err != nil {
		return err
	}
	var p engine.Projection
	if opts.Select != "" {
		if p, err = engine.ParseSelection(opts.Select); err != nil {
			return err
		}
	}
	s, err := opts.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	client, err := engine.Open(s.drv, s.graph, opts.clientOptions()...)
	if err != nil {
		return err
	}
	if opts.Tenant != "" {
		ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{
			UserID:   opts.User,
			Roles:    opts.Roles,
			TenantID: opts.Tenant,
		})
	}
	model := client.Model(entity)
	var v any
	if opts.Count {
		v, err = model.Count(ctx, engine.CountArgs{Where: where})
	} else {
		args := engine.FindArgs{
			Where:      where,
			OrderBy:    orderFlag(opts.Order),
			Skip:       opts.Skip,
			Projection: p,
		}
		if opts.Take != 0 {
			args.Take = engine.Int(opts.Take)
		}
		var rs []engine.Record
		rs, err = model.FindMany(ctx, args)
		opts.log.Debug("query done", zap.String("entity", entity), zap.Int("records", len(rs)))
		v = rs
	}
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *RootOptions) clientOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithLogger(o.log),
		engine.WithTxOptions(o.cfg.TxOptions()),
	}
	if o.cfg.Log.Statements {
		opts = append(opts, engine.WithDebug())
	}
	return opts
}

// whereArg converts a JSON object into a conjunction of equalities.
// Integral numbers are passed as int64.
func whereArg(s string) (querylanguage.P, error) {
	if s == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse --where: %w", err)
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	ps := make([]querylanguage.P, 0, len(m))
	for _, name := range names {
		switch v := m[name].(type) {
		case nil:
			ps = append(ps, querylanguage.FieldNil(name))
		case json.Number:
			if n, err := v.Int64(); err == nil {
				ps = append(ps, querylanguage.FieldEQ(name, n))
				continue
			}
			f, err := v.Float64()
			if err != nil {
				return nil, fmt.Errorf("parse --where: %s: %w", name, err)
			}
			ps = append(ps, querylanguage.FieldEQ(name, f))
		case map[string]any, []any:
			return nil, fmt.Errorf("parse --where: %s: expect a scalar", name)
		default:
			ps = append(ps, querylanguage.FieldEQ(name, v))
		}
	}
	return querylanguage.And(ps...), nil
}

func orderFlag(fields []string) []engine.OrderBy {
	var order []engine.OrderBy
	for _, f := range fields {
		if len(f) > 1 && f[0] == '-' {
			order = append(order, engine.Desc(f[1:]))
			continue
		}
		order = append(order, engine.Asc(f))
	}
	return order
}
