// rexscan/pkg/runtime/engine.go

package runtime

import (
	goruntime "runtime"

	"rgehrsitz/rexscan/pkg/catalog"
)

// Engine evaluates compiled rules against resource records. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
	workers int
}

// NewEngine returns an engine resolving RULE references through cat. workers
// bounds aggregation parallelism; values below 1 use GOMAXPROCS.
func NewEngine(cat *catalog.Catalog, workers int) *Engine {
	if workers < 1 {
		workers = goruntime.GOMAXPROCS(0)
	}
	return &Engine{catalog: cat, workers: workers}
}

// Catalog returns the catalog the engine was built with.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}
