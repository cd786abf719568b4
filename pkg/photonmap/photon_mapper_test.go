package photonmap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
	"github.com/df07/go-photon-mapper/pkg/material"
	"github.com/df07/go-photon-mapper/pkg/photon"
	"github.com/df07/go-photon-mapper/pkg/scene"
)

// mockCaster reports a hit at a fixed distance on every ray, or none at all
type mockCaster struct {
	mu       sync.Mutex
	hits     bool
	t, t2    float64
	normal   core.Vec3
	material *material.Material
	rays     []core.Ray
}

func (m *mockCaster) CastRay(ray core.Ray, hit *geometry.HitRecord, useRasterizedPatches bool) bool {
	m.mu.Lock()
	m.rays = append(m.rays, ray)
	m.mu.Unlock()
	if !m.hits {
		return false
	}
	hit.T = m.t
	hit.T2 = m.t2
	hit.Normal = m.normal
	hit.Material = m.material
	return true
}

// sceneCaster intersects every analytic primitive of a scene
type sceneCaster struct {
	scene *scene.Scene
}

func (c sceneCaster) CastRay(ray core.Ray, hit *geometry.HitRecord, useRasterizedPatches bool) bool {
	found := false
	for _, p := range c.scene.AllPrimitives() {
		if p.Intersect(ray, hit, false) {
			found = true
		}
	}
	return found
}

// logRecorder keeps every formatted log line
type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (l *logRecorder) Printf(format string, args ...interface{}) {
	l.mu.Lock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func testConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.NumPhotonsToShoot = 2000
	cfg.NumWorkers = 4
	return cfg
}

func TestPlanEmissionConservesEnergy(t *testing.T) {
	const tolerance = 1e-9
	small := geometry.NewQuad(core.NewVec3(0, 2, 0), core.NewVec3(0.5, 0, 0), core.NewVec3(0, 0, 0.5),
		material.NewEmissive(core.NewVec3(10, 5, 2)))
	large := geometry.NewQuad(core.NewVec3(3, 2, 0), core.NewVec3(1.5, 0, 0), core.NewVec3(0, 0, 1),
		material.NewEmissive(core.NewVec3(1, 1, 1)))

	plan := PlanEmission([]*geometry.Face{small, large}, 1000)
	if len(plan) != 2 {
		t.Fatalf("Expected 2 emissions, got %d", len(plan))
	}

	// areas 0.25 and 1.5 share 1000 photons
	wantCounts := []int{143, 858}
	for i, e := range plan {
		if e.Count != wantCounts[i] {
			t.Errorf("Light %d: count %d, want %d", i, e.Count, wantCounts[i])
		}

		total := e.Energy.Multiply(float64(e.Count))
		want := e.Light.Material().Emitted.Multiply(e.Light.Area())
		if total.Subtract(want).Length() > tolerance {
			t.Errorf("Light %d: emitted %v, want %v", i, total, want)
		}
	}

	// density per unit area is the same for both lights
	d0 := float64(plan[0].Count) / small.Area()
	d1 := float64(plan[1].Count) / large.Area()
	if math.Abs(d0-d1)/d1 > 0.01 {
		t.Errorf("Photon densities differ: %v vs %v", d0, d1)
	}
}

func TestPlanEmissionNoLights(t *testing.T) {
	if plan := PlanEmission(nil, 1000); plan != nil {
		t.Errorf("Expected no emissions, got %v", plan)
	}
}

func TestTracePhotonIntoVoid(t *testing.T) {
	caster := &mockCaster{hits: false}
	pm := New(scene.New(geometry.DefaultRasterConfig()), caster, core.DefaultConfig(), nil)

	var stored []photon.Photon
	pm.tracePhoton(core.Vec3{}, core.NewVec3(0, 1, 0), core.NewVec3(1, 1, 1), 0, core.NewSeededSampler(42), &stored)

	if len(stored) != 0 {
		t.Errorf("Expected no stored photons, got %d", len(stored))
	}
	if len(caster.rays) != 1 {
		t.Errorf("Expected exactly one cast, got %d", len(caster.rays))
	}
}

func TestTracePhotonBounceCap(t *testing.T) {
	diffuse := material.NewDiffuse(core.NewVec3(0.5, 0.5, 0.5))
	caster := &mockCaster{hits: true, t: 1, t2: 1, normal: core.NewVec3(0, 1, 0), material: diffuse}
	cfg := core.DefaultConfig()
	cfg.MaxPhotonBounces = 5
	pm := New(scene.New(geometry.DefaultRasterConfig()), caster, cfg, nil)

	var stored []photon.Photon
	pm.tracePhoton(core.Vec3{}, core.NewVec3(0, -1, 0), core.NewVec3(1, 1, 1), 0, core.NewSeededSampler(42), &stored)

	// casts at bounces 0..5, stores at 1..5
	if len(caster.rays) != 6 {
		t.Errorf("Expected 6 casts, got %d", len(caster.rays))
	}
	if len(stored) != 5 {
		t.Fatalf("Expected 5 stored photons, got %d", len(stored))
	}

	const tolerance = 1e-12
	for i, p := range stored {
		if p.Bounce != i+1 {
			t.Errorf("Photon %d: bounce %d, want %d", i, p.Bounce, i+1)
		}
		// energy halves at every diffuse interaction
		want := math.Pow(0.5, float64(i+2))
		if math.Abs(p.Energy.X-want) > tolerance {
			t.Errorf("Photon %d: energy %v, want %v", i, p.Energy.X, want)
		}
	}
}

func TestTracePhotonBranches(t *testing.T) {
	glossy := material.New(core.NewVec3(0.5, 0.5, 0.5), core.NewVec3(0.4, 0.4, 0.4), core.Vec3{}, core.NewVec3(0.2, 0.2, 0.2))
	caster := &mockCaster{hits: true, t: 1, t2: 3, normal: core.NewVec3(0, 1, 0), material: glossy}
	cfg := core.DefaultConfig()
	cfg.MaxPhotonBounces = 1
	pm := New(scene.New(geometry.DefaultRasterConfig()), caster, cfg, nil)

	var stored []photon.Photon
	pm.tracePhoton(core.Vec3{}, core.NewVec3(0, -1, 0), core.NewVec3(1, 1, 1), 0, core.NewSeededSampler(42), &stored)

	// one cast at bounce 0, three branch casts at bounce 1
	if len(caster.rays) != 4 {
		t.Fatalf("Expected 4 casts, got %d", len(caster.rays))
	}

	// each bounce 1 cast stores one photon per branch, scaled by both interactions
	want := []float64{
		0.5 * 0.5, 0.5 * 0.4, 0.5 * 0.2, // diffuse, then each branch
		0.4 * 0.5, 0.4 * 0.4, 0.4 * 0.2, // reflective
		0.2 * 0.5, 0.2 * 0.4, 0.2 * 0.2, // transmitted
	}
	if len(stored) != len(want) {
		t.Fatalf("Expected %d stored photons, got %d", len(want), len(stored))
	}
	const tolerance = 1e-12
	for i, p := range stored {
		if p.Bounce != 1 {
			t.Errorf("Photon %d: bounce %d, want 1", i, p.Bounce)
		}
		for axis := 0; axis < 3; axis++ {
			if math.Abs(p.Energy.Get(axis)-want[i]) > tolerance {
				t.Errorf("Photon %d: energy %v, want %v on every channel", i, p.Energy, want[i])
				break
			}
		}
	}

	mirror := caster.rays[2]
	if mirror.Direction != core.NewVec3(0, 1, 0) {
		t.Errorf("Reflected direction %v, want (0, 1, 0)", mirror.Direction)
	}

	// the transmitted photon leaves from the exit distance in the same direction
	transmitted := caster.rays[3]
	if transmitted.Origin != core.NewVec3(0, -3, 0) || transmitted.Direction != core.NewVec3(0, -1, 0) {
		t.Errorf("Transmitted ray %+v, want origin (0,-3,0) direction (0,-1,0)", transmitted)
	}
}

func TestTracePhotonDiffuseLeavesFacingSide(t *testing.T) {
	// normal points away from the incoming photon
	diffuse := material.NewDiffuse(core.NewVec3(1, 1, 1))
	caster := &mockCaster{hits: true, t: 1, t2: 1, normal: core.NewVec3(0, -1, 0), material: diffuse}
	cfg := core.DefaultConfig()
	cfg.MaxPhotonBounces = 1
	pm := New(scene.New(geometry.DefaultRasterConfig()), caster, cfg, nil)

	sampler := core.NewSeededSampler(42)
	for i := 0; i < 50; i++ {
		var stored []photon.Photon
		caster.rays = nil
		pm.tracePhoton(core.Vec3{}, core.NewVec3(0, -1, 0), core.NewVec3(1, 1, 1), 0, sampler, &stored)
		if d := caster.rays[1].Direction; d.Y <= 0 {
			t.Fatalf("Diffuse bounce %v continues through the surface", d)
		}
	}
}

func TestGatherIndirectWithoutPhotons(t *testing.T) {
	logger := &logRecorder{}
	pm := New(scene.New(geometry.DefaultRasterConfig()), &mockCaster{}, core.DefaultConfig(), logger)

	got := pm.GatherIndirect(core.Vec3{}, core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0))
	if !got.IsZero() {
		t.Errorf("Expected zero, got %v", got)
	}
	if len(logger.lines) != 1 {
		t.Errorf("Expected one warning, got %v", logger.lines)
	}
}

func TestGatherIndirect(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.NumPhotonsToCollect = 3
	pm := New(scene.New(geometry.DefaultRasterConfig()), &mockCaster{}, cfg, nil)

	tree := photon.NewTree(core.NewAABB(core.NewVec3(-10, -10, -10), core.NewVec3(10, 10, 10)))
	for i := 1; i <= 10; i++ {
		p := photon.New(core.NewVec3(0.5*float64(i), 0, 0), core.NewVec3(0, -1, 0), core.NewVec3(1, 1, 1), 1)
		if err := tree.Insert(p); err != nil {
			t.Fatal(err)
		}
	}
	pm.tree = tree

	// the three photons at 0.5, 1 and 1.5 are kept and divided by 1.5
	got := pm.GatherIndirect(core.Vec3{}, core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0))
	const tolerance = 1e-12
	if got.Subtract(core.NewVec3(2, 2, 2)).Length() > tolerance {
		t.Errorf("GatherIndirect() = %v, want (2, 2, 2)", got)
	}
}

func TestGatherIndirectFewerPhotonsThanTarget(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.NumPhotonsToCollect = 100
	pm := New(scene.New(geometry.DefaultRasterConfig()), &mockCaster{}, cfg, nil)

	tree := photon.NewTree(core.NewAABB(core.NewVec3(-1, -1, -1), core.NewVec3(1, 1, 1)))
	for _, x := range []float64{0.25, 0.5} {
		if err := tree.Insert(photon.New(core.NewVec3(x, 0, 0), core.Vec3{}, core.NewVec3(1, 1, 1), 1)); err != nil {
			t.Fatal(err)
		}
	}
	pm.tree = tree

	// the search stops once the box covers the tree and uses what it found
	got := pm.GatherIndirect(core.Vec3{}, core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0))
	const tolerance = 1e-12
	if got.Subtract(core.NewVec3(4, 4, 4)).Length() > tolerance {
		t.Errorf("GatherIndirect() = %v, want (4, 4, 4)", got)
	}
}

func TestTraceAllPhotonsEmptyScene(t *testing.T) {
	pm := New(scene.New(geometry.DefaultRasterConfig()), &mockCaster{}, core.DefaultConfig(), nil)
	if err := pm.TraceAllPhotons(context.Background()); err == nil {
		t.Error("Expected error for an empty scene")
	}
}

func allPhotons(tree *photon.Tree) []photon.Photon {
	var out []photon.Photon
	tree.Walk(func(n *photon.Node) bool {
		out = append(out, n.Photons()...)
		return true
	})
	return out
}

func TestTraceAllPhotonsCornell(t *testing.T) {
	s := scene.NewCornellScene(geometry.DefaultRasterConfig())
	pm := New(s, sceneCaster{scene: s}, testConfig(), nil)

	if err := pm.TraceAllPhotons(context.Background()); err != nil {
		t.Fatalf("TraceAllPhotons failed: %v", err)
	}

	tree := pm.Tree()
	if tree == nil || tree.Len() == 0 {
		t.Fatal("Expected stored photons in a closed-ish box")
	}

	bounds, _ := s.BoundingBox()
	for _, p := range allPhotons(tree) {
		if p.Bounce < 1 {
			t.Fatalf("Direct photon stored: %+v", p)
		}
		if !bounds.ContainsPoint(p.Position, 1e-3) {
			t.Fatalf("Photon %v outside the scene", p.Position)
		}
	}

	// the floor receives direct light, so its log holds photons
	report := pm.PrimitiveEnergyReport()
	if len(report) != s.GetPrimitiveCount() {
		t.Fatalf("Report has %d entries, want %d", len(report), s.GetPrimitiveCount())
	}
	if report[0].Photons == 0 || report[0].Kind != "quad" {
		t.Errorf("Floor entry %+v has no photons", report[0])
	}
	if report[len(report)-1].Kind != "cylinder ring" {
		t.Errorf("Last entry kind %q, want cylinder ring", report[len(report)-1].Kind)
	}
	for _, r := range report {
		if r.Intensity > 1 {
			t.Errorf("Intensity %v not clamped", r.Intensity)
		}
	}

	indirect := pm.GatherIndirect(core.NewVec3(0, 0.001, 0.5), core.NewVec3(0, 1, 0), core.NewVec3(0, -1, 0))
	if indirect.X <= 0 || indirect.Y <= 0 || indirect.Z <= 0 {
		t.Errorf("Expected positive indirect light on the floor, got %v", indirect)
	}
}

func TestTraceAllPhotonsIdempotent(t *testing.T) {
	s := scene.NewCornellScene(geometry.DefaultRasterConfig())
	cfg := testConfig()

	pm := New(s, sceneCaster{scene: s}, cfg, nil)
	if err := pm.TraceAllPhotons(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := allPhotons(pm.Tree())
	firstStats := pm.Tree().Stats()
	floorHits := len(s.OriginalQuads[0].Photons())

	if err := pm.TraceAllPhotons(context.Background()); err != nil {
		t.Fatal(err)
	}
	second := allPhotons(pm.Tree())

	if pm.Tree().Stats() != firstStats {
		t.Errorf("Tree shape changed: %+v vs %+v", firstStats, pm.Tree().Stats())
	}
	if len(first) != len(second) {
		t.Fatalf("Photon count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Photon %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
	// per-primitive logs are reset, not accumulated
	if got := len(s.OriginalQuads[0].Photons()); got != floorHits {
		t.Errorf("Floor log has %d photons after retrace, want %d", got, floorHits)
	}
}

func TestTraceAllPhotonsIndependentOfWorkers(t *testing.T) {
	trace := func(workers int) []photon.Photon {
		s := scene.NewCornellScene(geometry.DefaultRasterConfig())
		cfg := testConfig()
		cfg.NumWorkers = workers
		pm := New(s, sceneCaster{scene: s}, cfg, nil)
		if err := pm.TraceAllPhotons(context.Background()); err != nil {
			t.Fatal(err)
		}
		return allPhotons(pm.Tree())
	}

	one, many := trace(1), trace(8)
	if len(one) != len(many) {
		t.Fatalf("Photon count depends on workers: %d vs %d", len(one), len(many))
	}
	for i := range one {
		if one[i] != many[i] {
			t.Fatalf("Photon %d depends on workers", i)
		}
	}
}

func TestTraceAllPhotonsCancelled(t *testing.T) {
	s := scene.NewCornellScene(geometry.DefaultRasterConfig())
	pm := New(s, sceneCaster{scene: s}, testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := pm.TraceAllPhotons(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if pm.Tree() != nil {
		t.Error("Cancelled trace should leave no tree")
	}
}
