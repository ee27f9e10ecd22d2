package lattice

import (
	"fmt"
	"strings"

	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
	"github.com/ruslano69/tdtp-deid/pkg/core/table"
	"github.com/ruslano69/tdtp-deid/pkg/criteria"
	"github.com/ruslano69/tdtp-deid/pkg/hierarchy"
)

type classCheck struct {
	k      int
	column int // sensitive column for l and t, -1 for k
	l      int
	t      float64
	kind   string
}

// checks is a criteria set compiled against one schema.
type checks struct {
	minLevels []int // per quasi-identifier
	class     []classCheck
}

func compileChecks(s schema.Schema, qis []string, heights []int, c criteria.Set) (*checks, error) {
	ch := &checks{minLevels: make([]int, len(qis))}

	qiPos := func(name string) int {
		for i, q := range qis {
			if q == name {
				return i
			}
		}
		return -1
	}

	for _, rule := range c.Rules() {
		switch cr := rule.Criterion.(type) {
		case criteria.MinGeneralization:
			q := qiPos(cr.Attribute)
			if q < 0 {
				return nil, fmt.Errorf("%s: '%s' is not a quasi-identifier", cr.Kind(), cr.Attribute)
			}
			if cr.Level >= heights[q] {
				return nil, fmt.Errorf("%s: level %d exceeds hierarchy height %d of '%s'", cr.Kind(), cr.Level, heights[q], cr.Attribute)
			}
			if cr.Level > ch.minLevels[q] {
				ch.minLevels[q] = cr.Level
			}
		case criteria.KAnonymity:
			ch.class = append(ch.class, classCheck{kind: cr.Kind(), k: cr.K, column: -1})
		case criteria.LDiversity:
			col, err := sensitiveColumn(s, cr.Kind(), cr.Attribute)
			if err != nil {
				return nil, err
			}
			ch.class = append(ch.class, classCheck{kind: cr.Kind(), l: cr.L, column: col})
		case criteria.TCloseness:
			col, err := sensitiveColumn(s, cr.Kind(), cr.Attribute)
			if err != nil {
				return nil, err
			}
			ch.class = append(ch.class, classCheck{kind: cr.Kind(), t: cr.T, column: col})
		default:
			return nil, fmt.Errorf("unsupported criterion kind: %s", rule.Criterion.Kind())
		}
	}

	return ch, nil
}

func sensitiveColumn(s schema.Schema, kind, name string) (int, error) {
	attr, ok := s.Attribute(name)
	if !ok {
		return -1, fmt.Errorf("%s: unknown attribute '%s'", kind, name)
	}
	if attr.Type != schema.Sensitive {
		return -1, fmt.Errorf("%s: attribute '%s' is not sensitive", kind, name)
	}
	return s.Index(name), nil
}

func (c *checks) levelsAllowed(levels []int) bool {
	for i, l := range levels {
		if l < c.minLevels[i] {
			return false
		}
	}
	return true
}

// evaluator caches generalized sample columns per quasi-identifier and level.
type evaluator struct {
	sample table.Table
	cols   []int // schema position -> sample column
	qiCols []int // quasi-identifier -> sample column
	hier   []hierarchy.Hierarchy
	cache  []map[int][]string

	global map[int]map[string]float64 // sensitive column -> value distribution
}

func newEvaluator(s schema.Schema, sample table.Table, cols []int, qis []string, hier []hierarchy.Hierarchy) *evaluator {
	ev := &evaluator{
		sample: sample,
		cols:   cols,
		qiCols: make([]int, len(qis)),
		hier:   hier,
		cache:  make([]map[int][]string, len(qis)),
		global: make(map[int]map[string]float64),
	}
	for i, name := range qis {
		ev.qiCols[i] = cols[s.Index(name)]
		ev.cache[i] = make(map[int][]string)
	}
	return ev
}

func (ev *evaluator) column(q, level int) ([]string, error) {
	if col, ok := ev.cache[q][level]; ok {
		return col, nil
	}
	col := make([]string, ev.sample.Len())
	for r, row := range ev.sample.Rows {
		v, err := ev.hier[q].Generalize(row[ev.qiCols[q]], level)
		if err != nil {
			return nil, fmt.Errorf("sample row %d: %w", r, err)
		}
		col[r] = v
	}
	ev.cache[q][level] = col
	return col, nil
}

func (ev *evaluator) distribution(schemaCol int, rows []int) map[string]float64 {
	col := ev.cols[schemaCol]
	dist := make(map[string]float64)
	for _, r := range rows {
		dist[ev.sample.Rows[r][col]]++
	}
	n := float64(len(rows))
	for k := range dist {
		dist[k] /= n
	}
	return dist
}

func (ev *evaluator) globalDistribution(schemaCol int) map[string]float64 {
	if d, ok := ev.global[schemaCol]; ok {
		return d
	}
	all := make([]int, ev.sample.Len())
	for i := range all {
		all[i] = i
	}
	d := ev.distribution(schemaCol, all)
	ev.global[schemaCol] = d
	return d
}

// satisfies groups the sample into equivalence classes at the given node and
// counts rows in failing classes against the suppression budget.
func (ev *evaluator) satisfies(levels []int, c *checks, budget int) (bool, error) {
	if len(c.class) == 0 {
		return true, nil
	}

	gen := make([][]string, len(levels))
	for q, l := range levels {
		col, err := ev.column(q, l)
		if err != nil {
			return false, err
		}
		gen[q] = col
	}

	classes := make(map[string][]int)
	var order []string
	var key strings.Builder
	for r := range ev.sample.Rows {
		key.Reset()
		for q := range gen {
			key.WriteString(gen[q][r])
			key.WriteByte(0)
		}
		k := key.String()
		if _, ok := classes[k]; !ok {
			order = append(order, k)
		}
		classes[k] = append(classes[k], r)
	}

	suppressed := 0
	for _, k := range order {
		rows := classes[k]
		if !ev.classOK(rows, c) {
			suppressed += len(rows)
			if suppressed > budget {
				return false, nil
			}
		}
	}
	return true, nil
}

func (ev *evaluator) classOK(rows []int, c *checks) bool {
	for _, cc := range c.class {
		switch cc.kind {
		case criteria.KindKAnonymity:
			if len(rows) < cc.k {
				return false
			}
		case criteria.KindLDiversity:
			if len(ev.distribution(cc.column, rows)) < cc.l {
				return false
			}
		case criteria.KindTCloseness:
			if emd(ev.distribution(cc.column, rows), ev.globalDistribution(cc.column)) > cc.t {
				return false
			}
		}
	}
	return true
}

// emd is the earth mover's distance under the equal ground distance:
// half the L1 distance between the two distributions.
func emd(class, global map[string]float64) float64 {
	d := 0.0
	for v, p := range global {
		diff := class[v] - p
		if diff < 0 {
			diff = -diff
		}
		d += diff
	}
	return d / 2
}
