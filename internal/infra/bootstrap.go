package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-deid/pkg/artifact"
	"github.com/ruslano69/tdtp-deid/pkg/engine/lattice"
	"github.com/ruslano69/tdtp-deid/pkg/plan"
	"github.com/ruslano69/tdtp-deid/pkg/resultlog"
	"github.com/ruslano69/tdtp-deid/pkg/sample"
	"github.com/ruslano69/tdtp-deid/pkg/transform"
)

// Runtime is everything resolved at startup.
type Runtime struct {
	Artifact *artifact.Artifact
	Engine   *lattice.Engine
	Plan     *plan.Plan
	Service  *transform.Service
	Run      resultlog.Run
}

// Bootstrap loads the artifact and the sample, resolves the plan once and
// builds the transformation service. The returned Run is filled even on error.
func Bootstrap(ctx context.Context, cfg *Config, opts ...transform.Option) (*Runtime, error) {
	rt := &Runtime{Run: resultlog.Run{StartedAt: time.Now().UTC()}}
	defer func() { rt.Run.FinishedAt = time.Now().UTC() }()

	loader := artifact.NewLoader(artifact.WithS3Config(cfg.Artifact.S3))
	a, err := loader.Load(ctx, cfg.Artifact.Location)
	if err != nil {
		return rt, fmt.Errorf("artifact: %w", err)
	}
	rt.Artifact = a

	res, err := a.Build(nil, nil)
	if err != nil {
		return rt, fmt.Errorf("artifact %s: %w", cfg.Artifact.Location, err)
	}
	log.Info().
		Str("artifact", cfg.Artifact.Location).
		Strs("attributes", res.Schema.Names()).
		Str("criteria", res.Criteria.String()).
		Msg("artifact loaded")

	tbl, err := sample.Load(ctx, cfg.Sample, res.Schema)
	if err != nil {
		return rt, err
	}
	rt.Run.SampleRows = tbl.Len()
	log.Info().Int("rows", tbl.Len()).Str("type", cfg.Sample.Type).Msg("sample loaded")

	rt.Engine = lattice.New(res.Hierarchies, lattice.WithMaxNodes(cfg.Engine.MaxNodes))

	p, err := plan.Resolve(ctx, rt.Engine, res.Schema, res.Criteria, tbl)
	if err != nil {
		return rt, err
	}
	rt.Plan = p

	if cfg.Engine.Serialize {
		opts = append(opts, transform.WithSerializedEngine())
	}
	rt.Service = transform.NewService(p, rt.Engine, opts...)

	d := p.Describe()
	log.Info().
		Str("plan_id", d.ID).
		Strs("header", d.Header).
		Str("transformation", d.Transformation).
		Strs("criteria", d.Criteria).
		Float64("max_outliers", d.MaxOutliers).
		Msg("plan resolved")

	return rt, nil
}
