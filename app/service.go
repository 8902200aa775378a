// Package app orchestrates tabulation builds: each build gets its own
// identifier and its own model-fit cache, runs the requested analysis, and
// returns the rendered table through the layout-grammar port.
package app

import (
	"context"
	"fmt"

	"clintab/domain/core"
	"clintab/domain/frame"
	"clintab/internal"
	"clintab/internal/assemble"
	"clintab/internal/fitcache"
	"clintab/internal/tabulate"
	"clintab/ports"
)

// Kind selects the analysis a build runs
type Kind string

const (
	KindSurvival      Kind = "survival"
	KindResponse      Kind = "response"
	KindCoxRegression Kind = "coxreg"
	KindBiomarker     Kind = "biomarker"
)

// Request describes one tabulation build. Only the option block matching
// Kind is read.
type Request struct {
	Name   string
	Kind   Kind
	Roles  frame.VariableRoles
	Stats  []string
	Format tabulate.Format

	Survival  assemble.SurvivalOptions
	Response  assemble.ResponseOptions
	CoxReg    assemble.CoxRegOptions
	Biomarker assemble.BiomarkerOptions
}

// BuildResult carries the outcome of one build
type BuildResult struct {
	BuildID core.BuildID
	Name    string
	Table   ports.Table
	Fits    int // Cox models fitted during the build
}

// Service runs tabulation builds against a layout-grammar builder factory.
// Builders are single-use, so the factory is invoked once per build.
type Service struct {
	newBuilder func() ports.TableBuilder
	logger     *internal.Logger
}

// NewService creates a build service
func NewService(newBuilder func() ports.TableBuilder, logger *internal.Logger) *Service {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Service{newBuilder: newBuilder, logger: logger}
}

// Build runs one tabulation. A fresh fit cache is created per build, so
// model reuse never crosses build boundaries.
func (s *Service) Build(ctx context.Context, data *frame.Frame, req Request) (*BuildResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buildID := core.NewBuildID()
	s.logger.Info("build %s (%s): starting %s tabulation", buildID, req.Name, req.Kind)

	builder := s.newBuilder()
	result := &BuildResult{BuildID: buildID, Name: req.Name}
	var err error

	switch req.Kind {
	case KindSurvival:
		opts := req.Survival
		if opts.Logger == nil {
			opts.Logger = s.logger
		}
		result.Table, err = tabulate.SurvivalSubgroups(builder, req.Roles, data, opts,
			tabulate.SurvivalTableOptions{Stats: req.Stats, Format: req.Format})
	case KindResponse:
		opts := req.Response
		if opts.Logger == nil {
			opts.Logger = s.logger
		}
		result.Table, err = tabulate.ResponseSubgroups(builder, req.Roles, data, opts,
			tabulate.ResponseTableOptions{Stats: req.Stats, Format: req.Format})
	case KindCoxRegression:
		opts := req.CoxReg
		if opts.Logger == nil {
			opts.Logger = s.logger
		}
		cache := fitcache.New()
		result.Table, err = tabulate.CoxRegression(builder, req.Roles, data, opts, cache,
			tabulate.CoxRegTableOptions{Stats: req.Stats, Format: req.Format})
		result.Fits = cache.Fits()
	case KindBiomarker:
		opts := req.Biomarker
		if opts.Logger == nil {
			opts.Logger = s.logger
		}
		result.Table, err = tabulate.SurvivalBiomarkers(builder, req.Roles, data, opts,
			tabulate.BiomarkerTableOptions{Stats: req.Stats, Format: req.Format})
	default:
		err = fmt.Errorf("%w: unknown build kind %q", core.ErrInvalidConfiguration, req.Kind)
	}
	if err != nil {
		s.logger.Error("build %s (%s): %v", buildID, req.Name, err)
		return nil, err
	}
	s.logger.Info("build %s (%s): done", buildID, req.Name)
	return result, nil
}
