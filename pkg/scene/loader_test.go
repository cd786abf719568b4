package scene

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
)

const boxScene = `# Scene: Box
# a lit floor
v -1 0 -1
v -1 0 1
v 1 0 1
v 1 0 -1
v -0.2 1 -0.2
v 0.2 1 -0.2
v 0.2 1 0.2
v -0.2 1 0.2

material diffuse 0.5 0.5 0.5 reflective 0 0 0 emitted 0 0 0 transmitted 0 0 0
material diffuse 0 0 0 reflective 0 0 0 emitted 5 5 5 transmitted 0 0 0

m 0
f 1 2 3 4
s 0 0.3 0 0.25
r 0.5 0.1 0.5 0.2 0.1 0.15
m 1
f 5 6 7 8   # light faces down

background_color 0.2 0.3 0.4
PerspectiveCamera {
  camera_position 0 1 5
  point_of_interest 0 0.5 0
  up 0 1 0
  angle 0.5
}
`

func TestLoad(t *testing.T) {
	s, err := Load(strings.NewReader(boxScene), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(s.OriginalQuads) != 2 {
		t.Errorf("Expected 2 quads, got %d", len(s.OriginalQuads))
	}
	if len(s.Primitives) != 2 {
		t.Errorf("Expected 2 primitives, got %d", len(s.Primitives))
	}
	if len(s.Materials) != 2 {
		t.Errorf("Expected 2 materials, got %d", len(s.Materials))
	}
	if len(s.Lights) != 1 || s.Lights[0] != s.OriginalQuads[1] {
		t.Errorf("Expected the second quad to be the only light, got %d lights", len(s.Lights))
	}
	if s.Background != core.NewVec3(0.2, 0.3, 0.4) {
		t.Errorf("Background = %v", s.Background)
	}

	if s.Camera == nil || s.Camera.Projection != geometry.Perspective {
		t.Fatalf("Expected perspective camera, got %+v", s.Camera)
	}
	if s.Camera.Angle != 0.5 || s.Camera.Position != core.NewVec3(0, 1, 5) {
		t.Errorf("Camera not parsed: %+v", s.Camera)
	}

	if _, ok := s.Primitives[0].(*geometry.Sphere); !ok {
		t.Errorf("Expected a sphere first, got %T", s.Primitives[0])
	}
	ring, ok := s.Primitives[1].(*geometry.CylinderRing)
	if !ok {
		t.Fatalf("Expected a cylinder ring second, got %T", s.Primitives[1])
	}
	if ring.Height != 0.2 || ring.InnerRadius != 0.1 || ring.OuterRadius != 0.15 {
		t.Errorf("Ring dimensions not parsed: %+v", ring)
	}

	box, ok := s.BoundingBox()
	if !ok {
		t.Fatal("Expected a bounding box")
	}
	if box.Min.X != -1 || box.Max.Y != 1 {
		t.Errorf("Unexpected bounding box %v", box)
	}
}

func TestLoadOrthographicCamera(t *testing.T) {
	input := `OrthographicCamera { camera_position 0 0 10 point_of_interest 0 0 0 up 0 1 0 size 3 }`
	s, err := Load(strings.NewReader(input), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Camera.Projection != geometry.Orthographic || s.Camera.Size != 3 {
		t.Errorf("Expected orthographic camera of size 3, got %+v", s.Camera)
	}
}

func TestLoadDefaultCamera(t *testing.T) {
	input := `material diffuse 1 1 1 reflective 0 0 0 emitted 0 0 0 transmitted 0 0 0
m 0
s 0 0 0 1`
	s, err := Load(strings.NewReader(input), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	const tolerance = 1e-9
	// the box is 2 units across, so the camera sits 8 units back
	if math.Abs(s.Camera.Position.Z-8) > tolerance {
		t.Errorf("Default camera at %v, want z=8", s.Camera.Position)
	}
	if math.Abs(s.Camera.Angle-20*math.Pi/180) > tolerance {
		t.Errorf("Default camera angle %v, want 20 degrees", s.Camera.Angle)
	}
}

func TestLoadTextureCoordinates(t *testing.T) {
	input := `v 0 0 0
vt 0 0
v 1 0 0
vt 1 0
v 1 0 1
vt 1 1
v 0 0 1
material diffuse 1 1 1 reflective 0 0 0 emitted 0 0 0 transmitted 0 0 0
m 0
f 1 2 3 4`
	s, err := Load(strings.NewReader(input), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	face := s.OriginalQuads[0]
	if face.Vertices[2].UV != core.NewVec2(1, 1) {
		t.Errorf("Third vertex UV = %v, want (1, 1)", face.Vertices[2].UV)
	}
	if face.Vertices[3].UV != (core.Vec2{}) {
		t.Errorf("Fourth vertex has no vt, got %v", face.Vertices[3].UV)
	}
}

func TestLoadTextureFile(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 255, G: 0, B: 0, A: 255})
	f, err := os.Create(filepath.Join(dir, "red.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	path := filepath.Join(dir, "textured.obj")
	content := "material texture_file red.png reflective 0 0 0 emitted 0 0 0 transmitted 0 0 0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadFile(path, DefaultLoadOptions())
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if s.Name != "textured.obj" {
		t.Errorf("Name = %q, want file name", s.Name)
	}
	if got := s.Materials[0].DiffuseColor(core.NewVec2(0.5, 0.5)); got != core.NewVec3(1, 0, 0) {
		t.Errorf("Texture color = %v, want red", got)
	}
}

func TestLoadErrors(t *testing.T) {
	material := "material diffuse 1 1 1 reflective 0 0 0 emitted 0 0 0 transmitted 0 0 0\n"

	tests := []struct {
		name    string
		input   string
		wantErr error
		line    string
	}{
		{"unknown token", "v 0 0 0\nbogus 1 2 3\n", ErrUnknownToken, ":2:"},
		{"bad number", "v 0 zero 0\n", ErrSyntax, ":1:"},
		{"truncated vertex", "v 0 0", ErrSyntax, ""},
		{"face index out of range", material + "m 0\nv 0 0 0\nf 1 2 3 4\n", ErrSyntax, ":4:"},
		{"face before material", "v 0 0 0\nf 1 1 1 1\n", ErrSyntax, ":2:"},
		{"material index out of range", "m 0\n", ErrSyntax, ":1:"},
		{"vt without vertex", "vt 0 0\n", ErrSyntax, ":1:"},
		{"missing reflective", "material diffuse 1 1 1 emitted 0 0 0\n", ErrSyntax, ":1:"},
		{"bad camera", "PerspectiveCamera { camera_position 0 0 0 point_of_interest 0 0 1 up 0 1 0 size 1 }", ErrSyntax, ":1:"},
		{"unterminated camera", "PerspectiveCamera { camera_position 0 0 0 point_of_interest 0 0 1 up 0 1 0 angle 1", ErrSyntax, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input), DefaultLoadOptions())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected %v, got %v", tt.wantErr, err)
			}
			if tt.line != "" && !strings.Contains(err.Error(), tt.line) {
				t.Errorf("Error %q does not name line %s", err, tt.line)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "none.obj"), DefaultLoadOptions()); err == nil {
		t.Error("Expected error for missing file")
	}
}
