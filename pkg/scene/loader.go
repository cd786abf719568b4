package scene

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
	"github.com/df07/go-photon-mapper/pkg/loaders"
	"github.com/df07/go-photon-mapper/pkg/material"
)

var (
	// ErrUnknownToken is returned for a keyword the format does not define
	ErrUnknownToken = errors.New("unknown token")
	// ErrSyntax is returned for malformed statements
	ErrSyntax = errors.New("syntax error")
)

// LoadOptions controls scene loading
type LoadOptions struct {
	Name    string                // Used in error messages and as the scene name
	BaseDir string                // Texture paths are resolved against this directory
	Raster  geometry.RasterConfig // Resolution of rasterized primitives
}

// DefaultLoadOptions returns options with the stock rasterization resolution
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{Name: "scene", Raster: geometry.DefaultRasterConfig()}
}

// LoadFile reads a scene file. Textures are resolved relative to the file.
func LoadFile(path string, opts LoadOptions) (*Scene, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}
	defer file.Close()

	if opts.BaseDir == "" {
		opts.BaseDir = filepath.Dir(path)
	}
	if opts.Name == "" || opts.Name == DefaultLoadOptions().Name {
		opts.Name = filepath.Base(path)
	}
	return Load(file, opts)
}

// Load parses the simple .obj extension used for photon mapping scenes:
//
//	v x y z                     vertex
//	vt s t                      texture coordinates of the previous vertex
//	f a b c d                   quad over 1-based vertex indices
//	s x y z r                   sphere
//	r x y z h r1 r2             cylinder ring (height, inner, outer radius)
//	m i                         select material i for what follows
//	material diffuse r g b | texture_file f
//	         reflective r g b emitted r g b transmitted r g b
//	background_color r g b
//	PerspectiveCamera { camera_position x y z point_of_interest x y z up x y z angle a }
//	OrthographicCamera { camera_position x y z point_of_interest x y z up x y z size s }
//
// Text after # is ignored. A camera is placed automatically when none is given.
func Load(r io.Reader, opts LoadOptions) (*Scene, error) {
	p := &parser{
		tokens: newTokenizer(r),
		scene:  New(opts.Raster),
		opts:   opts,
	}
	p.scene.Name = opts.Name

	if err := p.parse(); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", opts.Name, p.tokens.line, err)
	}

	p.scene.EnsureCamera()
	return p.scene, nil
}

type parser struct {
	tokens   *tokenizer
	scene    *Scene
	opts     LoadOptions
	vertices []geometry.Vertex
	active   *material.Material
}

func (p *parser) parse() error {
	for {
		token, err := p.tokens.next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch token {
		case "v":
			pos, err := p.vec3()
			if err != nil {
				return err
			}
			p.vertices = append(p.vertices, geometry.NewVertex(pos))
		case "vt":
			if len(p.vertices) == 0 {
				return fmt.Errorf("%w: vt before any vertex", ErrSyntax)
			}
			s, err := p.float()
			if err != nil {
				return err
			}
			t, err := p.float()
			if err != nil {
				return err
			}
			p.vertices[len(p.vertices)-1].UV = core.NewVec2(s, t)
		case "f":
			err = p.face()
		case "s":
			err = p.sphere()
		case "r":
			err = p.ring()
		case "m":
			err = p.selectMaterial()
		case "material":
			err = p.material()
		case "background_color":
			p.scene.Background, err = p.vec3()
		case "PerspectiveCamera", "OrthographicCamera":
			err = p.camera(token)
		default:
			return fmt.Errorf("%w %q", ErrUnknownToken, token)
		}
		if err != nil {
			return err
		}
	}
}

func (p *parser) face() error {
	var corners [4]geometry.Vertex
	for i := range corners {
		idx, err := p.int()
		if err != nil {
			return err
		}
		if idx < 1 || idx > len(p.vertices) {
			return fmt.Errorf("%w: vertex index %d out of range [1, %d]", ErrSyntax, idx, len(p.vertices))
		}
		corners[i] = p.vertices[idx-1]
	}
	if p.active == nil {
		return fmt.Errorf("%w: face before any material", ErrSyntax)
	}
	p.scene.AddQuad(geometry.NewFace(p.active, corners[0], corners[1], corners[2], corners[3]))
	return nil
}

func (p *parser) sphere() error {
	center, err := p.vec3()
	if err != nil {
		return err
	}
	radius, err := p.float()
	if err != nil {
		return err
	}
	if p.active == nil {
		return fmt.Errorf("%w: sphere before any material", ErrSyntax)
	}
	p.scene.AddPrimitive(geometry.NewSphere(center, radius, p.active))
	return nil
}

func (p *parser) ring() error {
	center, err := p.vec3()
	if err != nil {
		return err
	}
	var dims [3]float64
	for i := range dims {
		if dims[i], err = p.float(); err != nil {
			return err
		}
	}
	if p.active == nil {
		return fmt.Errorf("%w: cylinder ring before any material", ErrSyntax)
	}
	p.scene.AddPrimitive(geometry.NewCylinderRing(center, dims[0], dims[1], dims[2], p.active))
	return nil
}

func (p *parser) selectMaterial() error {
	idx, err := p.int()
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(p.scene.Materials) {
		return fmt.Errorf("%w: material index %d out of range [0, %d)", ErrSyntax, idx, len(p.scene.Materials))
	}
	p.active = p.scene.Materials[idx]
	return nil
}

func (p *parser) material() error {
	kind, err := p.tokens.next()
	if err != nil {
		return unexpectedEOF(err)
	}

	var diffuse material.ColorSource
	switch kind {
	case "diffuse":
		c, err := p.vec3()
		if err != nil {
			return err
		}
		diffuse = material.NewSolidColor(c)
	case "texture_file":
		name, err := p.tokens.next()
		if err != nil {
			return unexpectedEOF(err)
		}
		path := name
		if !filepath.IsAbs(path) && p.opts.BaseDir != "" {
			path = filepath.Join(p.opts.BaseDir, path)
		}
		texture, err := loaders.LoadTexture(path)
		if err != nil {
			return err
		}
		diffuse = texture
	default:
		return fmt.Errorf("%w: expected diffuse or texture_file, got %q", ErrSyntax, kind)
	}

	reflective, err := p.keywordVec3("reflective")
	if err != nil {
		return err
	}
	emitted, err := p.keywordVec3("emitted")
	if err != nil {
		return err
	}
	transmitted, err := p.keywordVec3("transmitted")
	if err != nil {
		return err
	}

	m := material.NewTextured(diffuse, reflective, emitted, transmitted)
	m.Name = fmt.Sprintf("material%d", len(p.scene.Materials))
	p.scene.AddMaterial(m)
	return nil
}

func (p *parser) camera(kind string) error {
	if err := p.expect("{"); err != nil {
		return err
	}
	position, err := p.keywordVec3("camera_position")
	if err != nil {
		return err
	}
	poi, err := p.keywordVec3("point_of_interest")
	if err != nil {
		return err
	}
	up, err := p.keywordVec3("up")
	if err != nil {
		return err
	}

	if kind == "PerspectiveCamera" {
		if err := p.expect("angle"); err != nil {
			return err
		}
		angle, err := p.float()
		if err != nil {
			return err
		}
		p.scene.Camera = geometry.NewPerspectiveCamera(position, poi, up, angle)
	} else {
		if err := p.expect("size"); err != nil {
			return err
		}
		size, err := p.float()
		if err != nil {
			return err
		}
		p.scene.Camera = geometry.NewOrthographicCamera(position, poi, up, size)
	}
	return p.expect("}")
}

func (p *parser) expect(keyword string) error {
	token, err := p.tokens.next()
	if err != nil {
		return unexpectedEOF(err)
	}
	if token != keyword {
		return fmt.Errorf("%w: expected %q, got %q", ErrSyntax, keyword, token)
	}
	return nil
}

func (p *parser) keywordVec3(keyword string) (core.Vec3, error) {
	if err := p.expect(keyword); err != nil {
		return core.Vec3{}, err
	}
	return p.vec3()
}

func (p *parser) vec3() (core.Vec3, error) {
	var v [3]float64
	for i := range v {
		f, err := p.float()
		if err != nil {
			return core.Vec3{}, err
		}
		v[i] = f
	}
	return core.NewVec3(v[0], v[1], v[2]), nil
}

func (p *parser) float() (float64, error) {
	token, err := p.tokens.next()
	if err != nil {
		return 0, unexpectedEOF(err)
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: expected number, got %q", ErrSyntax, token)
	}
	return f, nil
}

func (p *parser) int() (int, error) {
	token, err := p.tokens.next()
	if err != nil {
		return 0, unexpectedEOF(err)
	}
	i, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: expected integer, got %q", ErrSyntax, token)
	}
	return i, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return fmt.Errorf("%w: unexpected end of file", ErrSyntax)
	}
	return err
}

// tokenizer splits the input on whitespace, dropping # comments and
// tracking the current line for error messages
type tokenizer struct {
	scanner *bufio.Scanner
	pending []string
	line    int
}

func newTokenizer(r io.Reader) *tokenizer {
	return &tokenizer{scanner: bufio.NewScanner(r)}
}

func (t *tokenizer) next() (string, error) {
	for len(t.pending) == 0 {
		if !t.scanner.Scan() {
			if err := t.scanner.Err(); err != nil {
				return "", fmt.Errorf("failed to read scene: %w", err)
			}
			return "", io.EOF
		}
		t.line++
		line := t.scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		t.pending = strings.Fields(line)
	}

	token := t.pending[0]
	t.pending = t.pending[1:]
	return token, nil
}
