package engine

import (
	"context"
	"fmt"

	"github.com/syssam/scholar"
	"github.com/syssam/scholar/contrib/dataloader"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/schema"
)

// maxInArgs bounds the placeholders of one IN list.
const maxInArgs = 500

// checkTenancy verifies that every foreign key set in rows references an
// existing row of the same tenant as the written row. Rows hold encoded
// values keyed by field name and must carry the tenant field.
func (s *session) checkTenancy(ctx context.Context, e *schema.Entity, rows []map[string]any) error {
	tf, ok := e.TenantField()
	if !ok || len(rows) == 0 {
		return nil
	}
	for _, r := range e.ForeignKeys() {
		fk := r.ForeignKey()
		keys := dataloader.UniqueKeys(rows, func(row map[string]any) any { return row[fk.Name] })
		if len(keys) == 0 {
			continue
		}
		target := r.TargetEntity()
		owners, err := s.tenantsOf(ctx, target, keys)
		if err != nil {
			return err
		}
		for _, row := range rows {
			k := row[fk.Name]
			if k == nil {
				continue
			}
			owner, ok := owners[k]
			switch {
			case !ok:
				return scholar.NewConstraintError(scholar.ConstraintForeignKey, e.Name, []string{fk.Name},
					fmt.Errorf("%s %v does not exist", target.Name, k))
			case owner != row[tf.Name]:
				return scholar.NewConstraintError(scholar.ConstraintCrossTenant, e.Name, []string{fk.Name},
					fmt.Errorf("%s %v belongs to another tenant", target.Name, k))
			}
		}
	}
	return nil
}

// tenantsOf returns the owning tenant of the rows of e identified by ids.
// Rows of the tenant root own themselves. The lookup bypasses privacy
// rules so references to invisible rows are reported as cross-tenant.
func (s *session) tenantsOf(ctx context.Context, e *schema.Entity, ids []any) (map[any]any, error) {
	id := e.ID()
	owner := id
	if tf, ok := e.TenantField(); ok {
		owner = tf
	}
	owners := make(map[any]any, len(ids))
	for _, chunk := range dataloader.Chunk(ids, maxInArgs) {
		sel := sql.Dialect(s.dialect).
			Select(rootAlias+"."+id.Column, rootAlias+"."+owner.Column).
			From(e.Table).
			As(rootAlias).
			Where(sql.In(rootAlias+"."+id.Column, chunk...))
		err := s.query(ctx, sel, func(rows *sql.Rows) error {
			var k, t any
			if err := rows.Scan(&k, &t); err != nil {
				return err
			}
			dk, err := decode(id, k)
			if err != nil {
				return err
			}
			dt, err := decode(owner, t)
			if err != nil {
				return err
			}
			owners[dk] = dt
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return owners, nil
}
