package app

import (
	"context"
	"testing"

	"clintab/adapters/render"
	"clintab/domain/core"
	"clintab/internal/assemble"
	"clintab/internal/testkit"
	"clintab/ports"
)

func testService() *Service {
	return NewService(func() ports.TableBuilder { return render.NewBuilder() }, nil)
}

func TestServiceBuildSurvival(t *testing.T) {
	data := testkit.NewTrialFrame(testkit.TrialConfig{N: 200, Seed: 5})
	roles := testkit.DefaultRoles()

	res, err := testService().Build(context.Background(), data, Request{
		Name:     "os-forest",
		Kind:     KindSurvival,
		Roles:    roles,
		Survival: assemble.SurvivalOptions{TimeUnit: "months"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.BuildID == "" {
		t.Error("build got no identifier")
	}
	if res.Table == nil || len(res.Table.Rows()) == 0 {
		t.Fatal("build produced no table rows")
	}
}

func TestServiceBuildUnknownKind(t *testing.T) {
	data := testkit.NewTrialFrame(testkit.TrialConfig{N: 50, Seed: 1})
	_, err := testService().Build(context.Background(), data, Request{Kind: Kind("anova")})
	if !core.IsConfigurationError(err) {
		t.Errorf("err = %v, want configuration error", err)
	}
}

func TestServiceCoxRegressionOwnsCache(t *testing.T) {
	data := testkit.NewTrialFrame(testkit.TrialConfig{N: 200, Seed: 5})
	roles := testkit.DefaultRoles()
	req := Request{
		Name:  "coxreg",
		Kind:  KindCoxRegression,
		Roles: roles,
	}

	svc := testService()
	first, err := svc.Build(context.Background(), data, req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := svc.Build(context.Background(), data, req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Each build refits: caches never cross build boundaries.
	if first.Fits == 0 || first.Fits != second.Fits {
		t.Errorf("fit counts = %d and %d, want equal non-zero counts per build", first.Fits, second.Fits)
	}
	if first.BuildID == second.BuildID {
		t.Error("builds must get distinct identifiers")
	}
}

func TestRunBatch(t *testing.T) {
	data := testkit.NewTrialFrame(testkit.TrialConfig{N: 200, Seed: 5})
	roles := testkit.DefaultRoles()

	reqs := []Request{
		{Name: "os-forest", Kind: KindSurvival, Roles: roles},
		{Name: "response", Kind: KindResponse, Roles: roles},
		{Name: "coxreg", Kind: KindCoxRegression, Roles: roles},
		{Name: "biomarker", Kind: KindBiomarker, Roles: roles},
	}
	results, err := testService().RunBatch(context.Background(), data, reqs)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if len(results) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(results), len(reqs))
	}
	for i, res := range results {
		if res == nil || res.Table == nil {
			t.Errorf("result %d missing", i)
			continue
		}
		if res.Name != reqs[i].Name {
			t.Errorf("result %d = %q, want order preserved", i, res.Name)
		}
	}
}

func TestRunBatchPropagatesFailure(t *testing.T) {
	data := testkit.NewTrialFrame(testkit.TrialConfig{N: 50, Seed: 1})
	roles := testkit.DefaultRoles()

	reqs := []Request{
		{Name: "ok", Kind: KindSurvival, Roles: roles},
		{Name: "broken", Kind: KindSurvival, Roles: roles,
			Stats: []string{"n_tot"}}, // missing the mandatory hr and ci
	}
	_, err := testService().RunBatch(context.Background(), data, reqs)
	if err == nil {
		t.Fatal("expected the failing build to surface")
	}
}
