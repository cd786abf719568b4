package photonmap

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
	"github.com/df07/go-photon-mapper/pkg/photon"
	"github.com/df07/go-photon-mapper/pkg/scene"
)

const (
	// treeMargin grows the scene box so photons on its faces are inside the tree
	treeMargin = 0.001
	// batchSize is the number of photons traced by one task with one sampler
	batchSize = 512
	// initialGatherFraction is the side of the first gather box relative to the tree
	initialGatherFraction = 0.01
)

// RayCaster finds the nearest surface along a ray. The ray tracer implements it.
type RayCaster interface {
	CastRay(ray core.Ray, hit *geometry.HitRecord, useRasterizedPatches bool) bool
}

// PhotonMapper shoots photons from the scene's lights, stores the bounced
// ones in a photon tree and estimates indirect light from them
type PhotonMapper struct {
	scene  *scene.Scene
	caster RayCaster
	config core.Config
	logger core.Logger
	tree   *photon.Tree
}

// New creates a photon mapper. No photons exist until TraceAllPhotons is called.
func New(s *scene.Scene, caster RayCaster, config core.Config, logger core.Logger) *PhotonMapper {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &PhotonMapper{
		scene:  s,
		caster: caster,
		config: config,
		logger: logger,
	}
}

// Tree returns the current photon tree, nil before TraceAllPhotons
func (pm *PhotonMapper) Tree() *photon.Tree {
	return pm.tree
}

// Emission is the share of the photon budget given to one light
type Emission struct {
	Light  *geometry.Face
	Count  int
	Energy core.Vec3 // Energy carried by each photon
}

// PlanEmission splits numPhotons across lights in proportion to their area so
// photon density is the same on every light. Each light gets ceil(N*area/total)
// photons carrying area/count*emitted, so a light's photons sum to area*emitted.
func PlanEmission(lights []*geometry.Face, numPhotons int) []Emission {
	totalArea := 0.0
	for _, light := range lights {
		totalArea += light.Area()
	}
	if totalArea <= 0 || numPhotons <= 0 {
		return nil
	}

	plan := make([]Emission, 0, len(lights))
	for _, light := range lights {
		area := light.Area()
		count := int(math.Ceil(float64(numPhotons) * area / totalArea))
		if count == 0 {
			continue
		}
		plan = append(plan, Emission{
			Light:  light,
			Count:  count,
			Energy: light.Material().Emitted.Multiply(area / float64(count)),
		})
	}
	return plan
}

// batch is a run of photons from one light traced with its own sampler
type batch struct {
	emission Emission
	count    int
	seed     int64
	photons  []photon.Photon
}

func (pm *PhotonMapper) batches(plan []Emission) []*batch {
	var out []*batch
	for _, e := range plan {
		for start := 0; start < e.Count; start += batchSize {
			out = append(out, &batch{
				emission: e,
				count:    min(batchSize, e.Count-start),
				seed:     pm.config.Seed + int64(len(out)),
			})
		}
	}
	return out
}

// TraceAllPhotons discards any previous photon map, then shoots the configured
// number of photons from every light and stores them in a new tree. Batches
// are traced in parallel and inserted in a fixed order, so the same seed gives
// the same tree.
func (pm *PhotonMapper) TraceAllPhotons(ctx context.Context) error {
	bounds, ok := pm.scene.BoundingBox()
	if !ok {
		pm.tree = nil
		return fmt.Errorf("cannot trace photons through an empty scene")
	}
	tree := photon.NewTree(bounds.ExpandRelative(treeMargin))

	for _, p := range pm.scene.AllPrimitives() {
		p.ResetPhotons()
	}

	plan := PlanEmission(pm.scene.Lights, pm.config.NumPhotonsToShoot)
	batches := pm.batches(plan)
	pm.logger.Printf("Tracing %d photons from %d lights in %d batches...\n",
		pm.config.NumPhotonsToShoot, len(plan), len(batches))

	workers := pm.config.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, b := range batches {
		b := b
		g.Go(func() error {
			return pm.traceBatch(ctx, b)
		})
	}
	if err := g.Wait(); err != nil {
		pm.tree = nil
		return err
	}

	for _, b := range batches {
		for _, p := range b.photons {
			if err := tree.Insert(p); err != nil {
				pm.tree = nil
				return fmt.Errorf("failed to store photon: %w", err)
			}
		}
	}
	pm.tree = tree

	stats := tree.Stats()
	pm.logger.Printf("Stored %d photons in %d nodes (max depth %d)\n", stats.Photons, stats.TotalNodes, stats.MaxDepth)
	return nil
}

func (pm *PhotonMapper) traceBatch(ctx context.Context, b *batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sampler := core.NewSeededSampler(b.seed)
	light := b.emission.Light
	normal := light.Normal().Normalize()
	for i := 0; i < b.count; i++ {
		position := light.RandomPoint(sampler)
		direction := core.RandomDiffuseDirection(normal, sampler)
		pm.tracePhoton(position, direction, b.emission.Energy, 0, sampler, &b.photons)
	}
	return nil
}

// tracePhoton follows one photon. Bounced photons are appended to stored;
// photons leaving the light directly are not, ray tracing covers them.
func (pm *PhotonMapper) tracePhoton(position, direction, energy core.Vec3, bounce int, sampler core.Sampler, stored *[]photon.Photon) {
	if bounce > pm.config.MaxPhotonBounces {
		return
	}

	ray := core.NewRay(position, direction)
	hit := geometry.NewHitRecord()
	if !pm.caster.CastRay(ray, &hit, false) {
		return
	}

	point := ray.At(hit.T)
	if hit.Primitive != nil {
		hit.Primitive.AddPhoton(photon.New(point, direction, energy, bounce))
	}
	m := hit.Material
	if m == nil {
		return
	}

	store := func(branchEnergy core.Vec3) {
		if bounce != 0 {
			*stored = append(*stored, photon.New(point, direction, branchEnergy, bounce))
		}
	}

	normal := hit.Normal.Normalize()

	if diffuse := energy.MultiplyVec(m.DiffuseColor(hit.UV)); !diffuse.IsZero() {
		store(diffuse)
		// bounce off the side the photon arrived on
		facing := normal
		if facing.Dot(direction) > 0 {
			facing = facing.Negate()
		}
		pm.tracePhoton(point, core.RandomDiffuseDirection(facing, sampler), diffuse, bounce+1, sampler, stored)
	}

	if reflective := energy.MultiplyVec(m.Reflective); !reflective.IsZero() {
		store(reflective)
		mirror := core.MirrorDirection(normal, direction).Normalize()
		pm.tracePhoton(point, mirror, reflective, bounce+1, sampler, stored)
	}

	if transmitted := energy.MultiplyVec(m.Transmitted); !transmitted.IsZero() {
		store(transmitted)
		pm.tracePhoton(ray.At(hit.ExitDistance()), direction, transmitted, bounce+1, sampler, stored)
	}
}

type candidate struct {
	index    int
	distance float64
}

// GatherIndirect estimates the indirect light arriving at point from the
// nearest stored photons. The search box starts at 1% of the tree and doubles
// until enough photons lie within the box's largest side of point, then the
// closest NumPhotonsToCollect are summed and divided by the farthest distance.
func (pm *PhotonMapper) GatherIndirect(point, normal, directionFrom core.Vec3) core.Vec3 {
	if pm.tree == nil {
		pm.logger.Printf("WARNING: Photons have not been traced throughout the scene.\n")
		return core.Vec3{}
	}

	target := pm.config.NumPhotonsToCollect
	if target <= 0 || pm.tree.Len() == 0 {
		return core.Vec3{}
	}

	root := pm.tree.Bounds()
	half := initialGatherFraction * root.MaxDim() / 2
	if half <= 0 {
		half = core.Epsilon
	}

	var photons []photon.Photon
	var nearby []candidate
	for {
		box := core.NewAABBAround(point, half)
		photons = pm.tree.CollectInBox(box)
		exhausted := box.Covers(root)

		if len(photons) >= target || exhausted {
			radius := box.MaxDim()
			radiusSq := radius * radius
			nearby = nearby[:0]
			for i, p := range photons {
				d := p.Position.Subtract(point).LengthSquared()
				if d <= radiusSq {
					nearby = append(nearby, candidate{index: i, distance: math.Sqrt(d)})
				}
			}
			if len(nearby) >= target || exhausted {
				break
			}
		}
		half *= 2
	}

	if len(nearby) == 0 {
		return core.Vec3{}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].distance < nearby[j].distance
	})
	if len(nearby) > target {
		nearby = nearby[:target]
	}

	maxDistance := math.Max(nearby[len(nearby)-1].distance, core.Epsilon)
	energy := core.Vec3{}
	for _, c := range nearby {
		energy = energy.Add(photons[c.index].Energy)
	}
	return energy.Divide(maxDistance)
}

// PrimitiveEnergy summarises the photons that landed on one primitive
type PrimitiveEnergy struct {
	Index     int       `json:"index"`
	Kind      string    `json:"kind"`
	Photons   int       `json:"photons"`
	Energy    core.Vec3 `json:"energy"`
	Intensity float64   `json:"intensity"` // Average channel of Energy, clamped to 1
}

// PrimitiveEnergyReport lists the photon hits on every quad and primitive of
// the scene, in AllPrimitives order
func (pm *PhotonMapper) PrimitiveEnergyReport() []PrimitiveEnergy {
	prims := pm.scene.AllPrimitives()
	report := make([]PrimitiveEnergy, len(prims))
	for i, p := range prims {
		energy := p.PhotonEnergy()
		report[i] = PrimitiveEnergy{
			Index:     i,
			Kind:      primitiveKind(p),
			Photons:   len(p.Photons()),
			Energy:    energy,
			Intensity: math.Min(1, energy.Average()),
		}
	}
	return report
}

func primitiveKind(p geometry.Primitive) string {
	switch p.(type) {
	case *geometry.Face:
		return "quad"
	case *geometry.Sphere:
		return "sphere"
	case *geometry.CylinderRing:
		return "cylinder ring"
	default:
		return fmt.Sprintf("%T", p)
	}
}
