// Package lattice is a reference engine implementing full-domain generalization.
//
// Every quasi-identifier is generalized to one level of its hierarchy for the whole
// table. The search walks the lattice of level combinations from the least general
// node upward and returns the first node whose sample satisfies the criteria.
package lattice

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/ruslano69/tdtp-deid/pkg/criteria"
	"github.com/ruslano69/tdtp-deid/pkg/engine"
	"github.com/ruslano69/tdtp-deid/pkg/hierarchy"
)

// DefaultMaxNodes bounds the number of lattice nodes a search may enumerate.
const DefaultMaxNodes = 100000

// SuppressedValue replaces identifying attributes.
const SuppressedValue = "*"

// Option configures an Engine.
type Option func(*Engine)

// WithMaxNodes sets the lattice size limit. Values <= 0 keep the default.
func WithMaxNodes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxNodes = n
		}
	}
}

// Engine is safe for concurrent use.
type Engine struct {
	hierarchies map[string]hierarchy.Hierarchy
	maxNodes    int
}

// New creates an engine over named hierarchies. Attributes reference hierarchies by name.
func New(hierarchies map[string]hierarchy.Hierarchy, opts ...Option) *Engine {
	hs := make(map[string]hierarchy.Hierarchy, len(hierarchies))
	for k, v := range hierarchies {
		hs[k] = v
	}
	e := &Engine{hierarchies: hs, maxNodes: DefaultMaxNodes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reentrant implements engine.Reentrant. Transformations are immutable after the search.
func (e *Engine) Reentrant() bool { return true }

// Transformation is the handle returned by the search: one level per quasi-identifier.
type Transformation struct {
	owner  *Engine
	schema schema.Schema
	qis    []string
	levels []int
	hier   []hierarchy.Hierarchy
}

// String renders the node, e.g. "age:1,zip:2".
func (t *Transformation) String() string {
	if len(t.qis) == 0 {
		return "identity"
	}
	parts := make([]string, len(t.qis))
	for i, name := range t.qis {
		parts[i] = name + ":" + strconv.Itoa(t.levels[i])
	}
	return strings.Join(parts, ",")
}

// Levels returns the generalization level per quasi-identifier.
func (t *Transformation) Levels() map[string]int {
	out := make(map[string]int, len(t.qis))
	for i, name := range t.qis {
		out[name] = t.levels[i]
	}
	return out
}

// ComputeOptimalTransformation implements engine.Engine.
func (e *Engine) ComputeOptimalTransformation(ctx context.Context, s schema.Schema, c criteria.Set, sample table.Table) (engine.Result, error) {
	if err := schema.NewValidator().ValidateSchema(s); err != nil {
		return engine.Result{}, fmt.Errorf("invalid schema: %w", err)
	}

	qiAttrs := schema.NewValidator().QuasiIdentifiers(s)
	qis := make([]string, len(qiAttrs))
	hier := make([]hierarchy.Hierarchy, len(qiAttrs))
	heights := make([]int, len(qiAttrs))
	for i, attr := range qiAttrs {
		h, ok := e.hierarchies[attr.Hierarchy]
		if !ok {
			return engine.Result{}, fmt.Errorf("attribute '%s': unknown hierarchy '%s'", attr.Name, attr.Hierarchy)
		}
		qis[i] = attr.Name
		hier[i] = h
		heights[i] = h.Height()
	}

	checks, err := compileChecks(s, qis, heights, c)
	if err != nil {
		return engine.Result{}, err
	}

	cols, err := project(s, sample)
	if err != nil {
		return engine.Result{}, fmt.Errorf("sample: %w", err)
	}

	nodes, err := enumerate(heights, e.maxNodes)
	if err != nil {
		return engine.Result{}, err
	}

	ev := newEvaluator(s, sample, cols, qis, hier)
	budget := int(math.Floor(c.MaxOutliers() * float64(sample.Len())))

	for _, levels := range nodes {
		if err := ctx.Err(); err != nil {
			return engine.Result{}, err
		}
		if !checks.levelsAllowed(levels) {
			continue
		}
		ok, err := ev.satisfies(levels, checks, budget)
		if err != nil {
			return engine.Result{}, err
		}
		if ok {
			tr := &Transformation{owner: e, schema: s, qis: qis, levels: levels, hier: hier}
			return engine.Result{Handle: tr, Header: s.Names()}, nil
		}
	}

	return engine.Result{}, engine.ErrNoSolution
}

// Apply implements engine.Engine. The input table is read by column name and never modified.
func (e *Engine) Apply(ctx context.Context, h engine.Handle, t table.Table) (table.Table, error) {
	tr, ok := h.(*Transformation)
	if !ok || tr.owner != e {
		return table.Table{}, engine.ErrUnknownHandle
	}
	if err := ctx.Err(); err != nil {
		return table.Table{}, err
	}

	cols, err := project(tr.schema, t)
	if err != nil {
		return table.Table{}, err
	}

	attrs := tr.schema.Attributes()
	qiIndex := make(map[string]int, len(tr.qis))
	for i, name := range tr.qis {
		qiIndex[name] = i
	}

	out := table.New(tr.schema.Names())
	out.Rows = make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		values := make([]string, len(attrs))
		for j, attr := range attrs {
			v := row[cols[j]]
			switch attr.Type {
			case schema.QuasiIdentifying:
				q := qiIndex[attr.Name]
				g, err := tr.hier[q].Generalize(v, tr.levels[q])
				if err != nil {
					return table.Table{}, fmt.Errorf("row %d, attribute '%s': %w", r, attr.Name, err)
				}
				values[j] = g
			case schema.Identifying:
				values[j] = SuppressedValue
			default:
				values[j] = v
			}
		}
		out.Rows[r] = values
	}

	return out, nil
}

// project maps schema attributes to table columns by name.
func project(s schema.Schema, t table.Table) ([]int, error) {
	cols := make([]int, s.Len())
	for i, name := range s.Names() {
		c := t.Column(name)
		if c < 0 {
			return nil, fmt.Errorf("column '%s' missing from table", name)
		}
		cols[i] = c
	}
	for r, row := range t.Rows {
		if len(row) != t.Width() {
			return nil, fmt.Errorf("row %d has %d values, header has %d", r, len(row), t.Width())
		}
	}
	return cols, nil
}

// enumerate lists lattice nodes ordered by total level, then lexicographically.
func enumerate(heights []int, maxNodes int) ([][]int, error) {
	total := 1
	for _, h := range heights {
		if h < 1 {
			return nil, fmt.Errorf("hierarchy height must be >= 1, got %d", h)
		}
		if total > maxNodes/h {
			return nil, fmt.Errorf("%w: more than %d nodes", engine.ErrLatticeTooLarge, maxNodes)
		}
		total *= h
	}

	nodes := make([][]int, 0, total)
	cur := make([]int, len(heights))
	for {
		node := make([]int, len(cur))
		copy(node, cur)
		nodes = append(nodes, node)

		// odometer increment, last position fastest
		i := len(cur) - 1
		for ; i >= 0; i-- {
			cur[i]++
			if cur[i] < heights[i] {
				break
			}
			cur[i] = 0
		}
		if i < 0 {
			break
		}
	}

	sort.SliceStable(nodes, func(a, b int) bool {
		sa, sb := sum(nodes[a]), sum(nodes[b])
		if sa != sb {
			return sa < sb
		}
		for i := range nodes[a] {
			if nodes[a][i] != nodes[b][i] {
				return nodes[a][i] < nodes[b][i]
			}
		}
		return false
	})

	return nodes, nil
}

func sum(levels []int) int {
	s := 0
	for _, l := range levels {
		s += l
	}
	return s
}
