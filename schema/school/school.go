// Package school holds the school domain graph: tenants and the users,
// students, staff, classes, attendance, communications, fees, reports,
// timetables and payrolls they own.
package school

//go:generate go run github.com/syssam/scholar/cmd/scholar gen --schema school.yaml --out handles_gen.go --package school

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/syssam/scholar/schema"
)

//go:embed school.yaml
var description []byte

// Graph returns the school graph, parsed once on first use.
var Graph = sync.OnceValues(func() (*schema.Graph, error) {
	return schema.Parse(description)
})

// MustGraph is like Graph but panics on error.
func MustGraph() *schema.Graph {
	g, err := Graph()
	if err != nil {
		panic(err)
	}
	return g
}

// Description returns a copy of the YAML description of the graph.
func Description() []byte {
	return bytes.Clone(description)
}
