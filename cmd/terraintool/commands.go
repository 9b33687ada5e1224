package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-terrain/internal/assets"
	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/mapsource"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/internal/world"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

func progress(ctx context.Context) terrain.Progress {
	return terrain.NewContextProgress(ctx, logger.Named("progress"))
}

// vecFlag parses "x,y,z".
type vecFlag struct {
	v   math.Vec3
	set bool
}

func (f *vecFlag) String() string { return fmt.Sprintf("%g,%g,%g", f.v.X, f.v.Y, f.v.Z) }

func (f *vecFlag) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return fmt.Errorf("expected x,y,z, got %q", s)
	}
	var c [3]float32
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return fmt.Errorf("component %d: %w", i, err)
		}
		c[i] = float32(v)
	}
	f.v = math.Vec3{X: c[0], Y: c[1], Z: c[2]}
	f.set = true
	return nil
}

func openArchive(cfg *config.Config) (storage.Archive, error) {
	return storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
}

// openTerrain opens the map archive, creating a terrain from the configured
// parameters when none exists yet.
func openTerrain(cfg *config.Config, create bool) (*mapsource.TerrainData, error) {
	archive, err := openArchive(cfg)
	if err != nil {
		return nil, err
	}
	if archive.Exists(formats.TerrainHeaderName) {
		d, err := mapsource.Open(archive)
		if err != nil {
			archive.Close()
		}
		return d, err
	}
	if !create {
		archive.Close()
		return nil, fmt.Errorf("no terrain in %s", cfg.Storage.Path)
	}
	params, err := cfg.Terrain.Parameters()
	if err != nil {
		archive.Close()
		return nil, err
	}
	d, err := mapsource.New(archive, params)
	if err != nil {
		archive.Close()
	}
	return d, err
}

func saveAndClose(ctx context.Context, d *mapsource.TerrainData) error {
	err := d.Save(progress(ctx))
	return multierr.Append(err, d.Archive().Close())
}

func cmdInfo(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	archive, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer archive.Close()

	if archive.Exists(formats.TerrainHeaderName) {
		d, err := mapsource.Open(archive)
		if err != nil {
			return err
		}
		printParameters(d.Parameters())
		if minX, minY, maxX, maxY, ok := d.SectionBounds(); ok {
			fmt.Printf("Sections: %d in [%d,%d]..[%d,%d]\n", len(d.AvailableSections()), minX, minY, maxX, maxY)
		} else {
			fmt.Println("Sections: none")
		}
		for _, l := range d.Layers() {
			fmt.Printf("  layer %-3d %s\n", l.Index, l.Name)
		}
	}

	if archive.Exists(formats.MapHeaderName) {
		data, err := archive.Read(formats.MapHeaderName)
		if err != nil {
			return err
		}
		h, err := formats.ParseMapHeader(data)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Printf("Map:      %s (%s)\n", h.Name, h.GUID)
		fmt.Printf("Regions:  %d of %dx%d sections, %d tiers\n", len(h.Regions), h.RegionSize, h.RegionSize, h.RegionLODLevels)
	}
	return nil
}

func printParameters(p terrain.Parameters) {
	fmt.Printf("Format:   %s\n", p.HeightStorageFormat)
	fmt.Printf("Heights:  [%d, %d] base %d\n", p.MinHeight, p.MaxHeight, p.BaseHeight)
	fmt.Printf("Section:  %d quads, scale %d, %d LODs (%.0f world units)\n", p.SectionSize, p.Scale, p.LODCount, p.SectionWorldSize())
}

func cmdCreate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	sx := fs.Int("sx", 0, "First section X")
	sy := fs.Int("sy", 0, "First section Y")
	w := fs.Int("w", 1, "Sections along X")
	h := fs.Int("h", 1, "Sections along Y")
	height := fs.Float64("height", 0, "Initial height")
	layer := fs.Int("layer", 0, "Initial layer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := openTerrain(cfg, true)
	if err != nil {
		return err
	}
	created := 0
	for y := int32(*sy); y < int32(*sy+*h); y++ {
		for x := int32(*sx); x < int32(*sx+*w); x++ {
			if d.CreateSection(x, y, float32(*height), int32(*layer)) {
				created++
			}
		}
	}
	fmt.Printf("Created %d sections\n", created)
	return saveAndClose(ctx, d)
}

func cmdImport(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	path := fs.String("image", "", "Heightmap image (png, bmp, tiff)")
	sx := fs.Int("sx", 0, "Section X of the image origin")
	sy := fs.Int("sy", 0, "Section Y of the image origin")
	minH := fs.Float64("min", 0, "Height of black")
	maxH := fs.Float64("max", 100, "Height of white")
	scale := fs.String("scale", "none", "Scale mode: none, down, up")
	factor := fs.Int("factor", 1, "Integer scale factor")
	layer := fs.Int("layer", 0, "Layer for new sections")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("missing -image")
	}
	mode, err := mapsource.ParseScaleMode(*scale)
	if err != nil {
		return err
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	img, err := mapsource.DecodeHeightmap(f)
	f.Close()
	if err != nil {
		return err
	}

	d, err := openTerrain(cfg, true)
	if err != nil {
		return err
	}
	err = d.ImportHeightmap(img, mapsource.ImportOptions{
		StartSectionX: int32(*sx),
		StartSectionY: int32(*sy),
		MinHeight:     float32(*minH),
		MaxHeight:     float32(*maxH),
		ScaleMode:     mode,
		ScaleFactor:   *factor,
		Layer:         int32(*layer),
	}, progress(ctx))
	if err != nil {
		return multierr.Append(err, d.Archive().Close())
	}
	return saveAndClose(ctx, d)
}

func cmdEdit(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	x := fs.Float64("x", 0, "Brush center X")
	y := fs.Float64("y", 0, "Brush center Y")
	radius := fs.Float64("radius", 8, "Brush radius")
	strength := fs.Float64("strength", 0, "Height delta at the center")
	falloff := fs.String("falloff", "smooth", "Falloff: constant, linear, smooth")
	layer := fs.Int("layer", -1, "Paint this layer instead of raising heights")
	weight := fs.Float64("weight", 1, "Target layer weight")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fo, err := mapsource.ParseFalloff(*falloff)
	if err != nil {
		return err
	}

	d, err := openTerrain(cfg, false)
	if err != nil {
		return err
	}
	if err := d.LoadAllSections(progress(ctx)); err != nil {
		return multierr.Append(err, d.Archive().Close())
	}

	center := math.Vec3{X: float32(*x), Y: float32(*y)}
	var changed int
	if *layer >= 0 {
		changed = d.ApplyLayerBrush(center, float32(*radius), int32(*layer), float32(*weight), fo)
	} else {
		changed = d.ApplyHeightBrush(center, float32(*radius), float32(*strength), fo)
	}
	fmt.Printf("Changed %d points\n", changed)
	return saveAndClose(ctx, d)
}

func cmdBake(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("bake", flag.ContinueOnError)
	out := fs.String("out", "", "Output archive path")
	backend := fs.String("out-backend", cfg.Storage.Backend, "Output archive backend")
	name := fs.String("name", "", "Map name")
	regionSize := fs.Int("region-size", int(cfg.Streaming.RegionSize), "Region edge in sections")
	lods := fs.Int("lods", int(cfg.Streaming.RegionLODLevels), "Tiers per region")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("missing -out")
	}

	d, err := openTerrain(cfg, false)
	if err != nil {
		return err
	}
	defer d.Archive().Close()

	dst, err := storage.Open(*backend, *out)
	if err != nil {
		return err
	}
	defer dst.Close()

	h, err := world.BakeRegions(d, dst, world.BakeOptions{
		Name:       *name,
		RegionSize: int32(*regionSize),
		LODLevels:  int32(*lods),
	}, progress(ctx))
	if err != nil {
		return err
	}
	fmt.Printf("Baked %d regions into %s\n", len(h.Regions), *out)
	return nil
}

func cmdRaycast(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("raycast", flag.ContinueOnError)
	var origin, dir vecFlag
	fs.Var(&origin, "o", "Ray origin x,y,z")
	fs.Var(&dir, "d", "Ray direction x,y,z")
	first := fs.Bool("first", false, "Stop at the first intersection found")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !origin.set || !dir.set {
		return fmt.Errorf("missing -o or -d")
	}

	d, err := openTerrain(cfg, false)
	if err != nil {
		return err
	}
	defer d.Archive().Close()
	if err := d.LoadAllSections(progress(ctx)); err != nil {
		return err
	}

	hit, ok := d.RayCast(math.NewRay(origin.v, dir.v), *first)
	if !ok {
		fmt.Println("No hit")
		return nil
	}
	fmt.Printf("Hit section (%d, %d) quad (%d, %d) at (%.3f, %.3f, %.3f), distance %.3f\n",
		hit.SectionX, hit.SectionY, hit.QuadX, hit.QuadY,
		hit.Position.X, hit.Position.Y, hit.Position.Z, hit.Distance)
	return nil
}

func cmdSelect(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("select", flag.ContinueOnError)
	var cam vecFlag
	fs.Var(&cam, "camera", "Camera position x,y,z")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := openTerrain(cfg, false)
	if err != nil {
		return err
	}
	defer d.Archive().Close()
	if err := d.LoadAllSections(progress(ctx)); err != nil {
		return err
	}

	var q terrain.RenderQuery
	entries := q.Invoke(d.LoadedSections(), cam.v, nil, cfg.Render.Ranges(d.Parameters()))
	perLOD := make(map[uint32]int)
	partial := 0
	for _, e := range entries {
		perLOD[e.LODLevel]++
		if e.DrawFlags != terrain.DrawAll {
			partial++
		}
	}
	lods := make([]uint32, 0, len(perLOD))
	for l := range perLOD {
		lods = append(lods, l)
	}
	sort.Slice(lods, func(i, j int) bool { return lods[i] < lods[j] })

	fmt.Printf("Entries: %d (%d partial)\n", len(entries), partial)
	for _, l := range lods {
		fmt.Printf("  LOD %d: %d\n", l, perLOD[l])
	}
	return nil
}

func cmdStream(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("stream", flag.ContinueOnError)
	var obs vecFlag
	fs.Var(&obs, "observer", "Observer position x,y,z")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loader := assets.NewManager()
	defer loader.Close()
	if err := loader.OpenArchive(cfg.Storage.Backend, cfg.Storage.Path); err != nil {
		return err
	}

	entities := world.NewStaticEntityLoader()
	m, err := world.LoadMap(loader, world.Options{
		LoadRadius: cfg.Streaming.LoadRadius,
		Entities:   entities,
	})
	if err != nil {
		return err
	}
	defer m.UnloadAllRegions()

	if obs.set {
		m.SetObservers(obs.v)
	}
	streamErr := m.HandleStreaming(progress(ctx))

	for _, r := range m.Regions() {
		tier := "unloaded"
		if r.LoadedLOD() != world.Unloaded {
			tier = fmt.Sprintf("tier %d", r.LoadedLOD())
		}
		fmt.Printf("  region (%d, %d): %s, %d sections, %d entities\n",
			r.Coord().X, r.Coord().Y, tier, len(r.Sections()), len(r.Entities()))
	}
	fmt.Printf("Loaded sections: %d, live entities: %d\n", len(m.LoadedSections()), entities.Live())
	return streamErr
}
