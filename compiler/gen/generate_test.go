package gen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/syssam/scholar/schema"
)

const library = `
root: Library
entities:
  - name: Library
    mixins: [id]
    fields:
      - {name: name, type: string}
    relations:
      - {name: books, target: Book, many: true, inverse: library}
  - name: Book
    mixins: [id, time]
    tenant: libraryId
    fields:
      - {name: libraryId, type: string}
      - {name: title, type: string}
      - {name: pages, type: int, optional: true}
      - {name: rating, type: float}
      - {name: tags, type: "[]string", default: []}
      - {name: state, type: enum, values: [ON_SHELF, LENT], default: ON_SHELF}
      - {name: meta, type: json, optional: true}
      - {name: isPublic, type: bool}
    relations:
      - {name: library, target: Library, field: libraryId}
`

func TestPascal(t *testing.T) {
	tests := map[string]string{
		"id":           "ID",
		"tenantId":     "TenantID",
		"dateOfBirth":  "DateOfBirth",
		"SYSTEM_ADMIN": "SystemAdmin",
		"FREE":         "Free",
		"ClassStudent": "ClassStudent",
		"apiURL":       "APIURL",
		"jsonData":     "JSONData",
	}
	for in, want := range tests {
		assert.Equal(t, want, pascal(in), in)
	}
}

func TestGenerate(t *testing.T) {
	g, err := schema.Parse([]byte(library))
	require.NoError(t, err)
	src, err := Generate(context.Background(), g, "library", 2)
	require.NoError(t, err)
	out := string(src)

	for _, want := range []string{
		"// Code generated by scholar, DO NOT EDIT.",
		"package library",
		`"github.com/syssam/scholar/querylanguage"`,
		"type BookState string",
		`BookStateOnShelf BookState = "ON_SHELF"`,
		"func BookStateValues() []BookState",
		"type BookFields struct",
		"State     querylanguage.EnumField[BookState]",
		"Pages     querylanguage.IntField",
		"Rating    querylanguage.FloatField",
		"Tags      querylanguage.StringListField",
		"Meta      querylanguage.JSONField",
		"IsPublic  querylanguage.BoolField",
		"CreatedAt querylanguage.TimeField",
		"Library   querylanguage.OneEdge",
		"Books querylanguage.ManyEdge",
		`func (BookFields) Entity() string`,
		`LibraryID: "libraryId",`,
		`"Book":    Book,`,
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "type LibraryFields"), strings.Index(out, "type BookFields"))
}

func TestGenerateCollision(t *testing.T) {
	g, err := schema.Parse([]byte(`
entities:
  - name: A
    mixins: [id]
    fields:
      - {name: userId, type: string}
      - {name: userID, type: string, column: user_id2}
`))
	require.NoError(t, err)
	_, err = Generate(context.Background(), g, "a", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSchema))
	assert.Contains(t, err.Error(), "identifier UserID collides")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "library.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(library), 0o600))
	target := filepath.Join(dir, "library", "handles_gen.go")

	require.NoError(t, Run(context.Background(), Config{Schema: schemaPath, Target: target}))
	src, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(src), "package library")

	err = Run(context.Background(), Config{Schema: schemaPath})
	assert.True(t, errors.Is(err, ErrMissingConfig))
	err = Run(context.Background(), Config{Schema: schemaPath, Target: filepath.Join(dir, "x.txt")})
	assert.True(t, errors.Is(err, ErrMissingConfig))
	err = Run(context.Background(), Config{Schema: filepath.Join(dir, "missing.yaml"), Target: target})
	assert.True(t, errors.Is(err, ErrInvalidSchema))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "library.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(library), 0o600))
	target := filepath.Join(dir, "library", "handles_gen.go")

	core, logs := observer.New(zap.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Config{Schema: schemaPath, Target: target, Package: "library"}, zap.New(core), func(error) {
			runs.Add(1)
		})
	}()
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	updated := strings.Replace(library, "{name: isPublic, type: bool}", "{name: isPublic, type: bool}\n      - {name: isbn, type: string}", 1)
	require.NoError(t, os.WriteFile(schemaPath, []byte(updated), 0o600))
	require.Eventually(t, func() bool {
		src, err := os.ReadFile(target)
		return err == nil && strings.Contains(string(src), `Isbn      querylanguage.StringField`)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.NotZero(t, logs.FilterMessage("generated handles").Len())
}
