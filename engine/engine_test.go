package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/scholar/dialect"
	"github.com/syssam/scholar/dialect/sql"
	"github.com/syssam/scholar/migrate"
	"github.com/syssam/scholar/privacy"
	"github.com/syssam/scholar/schema/school"
)

var dbSeq atomic.Int64

// openClient returns a client over a fresh in-memory database holding
// the school tables.
func openClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	dsn := fmt.Sprintf("file:engine%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", dbSeq.Add(1))
	drv, err := sql.Open(dialect.SQLite, dsn)
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	m, err := migrate.New(drv.DB(), dialect.SQLite, school.MustGraph())
	require.NoError(t, err)
	require.NoError(t, m.Create(context.Background()))
	c, err := Open(drv, school.MustGraph(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// fixture holds the ids of the seeded rows.
type fixture struct {
	tenant1, tenant2 string
	// students of tenant1 by admission number, and the one of tenant2.
	students map[string]string
	other    string
	class    string
}

func viewerOf(ctx context.Context, tenant string) context.Context {
	return privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "u-" + tenant, Roles: []string{"TENANT_ADMIN"}, TenantID: tenant})
}

// seed creates two tenants, three students and a class in the first one
// and a student in the second one.
func seed(t *testing.T, c *Client) fixture {
	t.Helper()
	ctx := context.Background()
	tenant := func(slug string) string {
		rec, err := c.Model("Tenant").Create(ctx, CreateArgs{Data: Data{
			"name":  slug,
			"slug":  slug,
			"email": slug + "@example.com",
		}})
		require.NoError(t, err)
		return rec["id"].(string)
	}
	f := fixture{tenant1: tenant("north"), tenant2: tenant("south"), students: make(map[string]string)}
	for i, first := range []string{"Ada", "Grace", "Alan"} {
		no := fmt.Sprintf("N-%d", i+1)
		rec, err := c.Model("Student").Create(ctx, CreateArgs{Data: Data{
			"tenantId":        f.tenant1,
			"firstName":       first,
			"lastName":        "Smith",
			"admissionNumber": no,
		}})
		require.NoError(t, err)
		f.students[no] = rec["id"].(string)
	}
	rec, err := c.Model("Student").Create(ctx, CreateArgs{Data: Data{
		"tenantId":        f.tenant2,
		"firstName":       "Edsger",
		"lastName":        "Dijkstra",
		"admissionNumber": "S-1",
	}})
	require.NoError(t, err)
	f.other = rec["id"].(string)
	rec, err = c.Model("Class").Create(ctx, CreateArgs{Data: Data{
		"tenantId": f.tenant1,
		"name":     "1A",
		"grade":    1,
	}})
	require.NoError(t, err)
	f.class = rec["id"].(string)
	return f
}

// seedFees creates one fee per entry for student, due a month apart.
func seedFees(t *testing.T, c *Client, f fixture, student string, fees ...fee) {
	t.Helper()
	due := time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)
	for i, fe := range fees {
		_, err := c.Model("Fee").Create(context.Background(), CreateArgs{Data: Data{
			"tenantId":  f.tenant1,
			"studentId": student,
			"amount":    fe.amount,
			"status":    fe.status,
			"dueDate":   due.AddDate(0, i, 0),
		}})
		require.NoError(t, err)
	}
}

type fee struct {
	amount float64
	status string
}
