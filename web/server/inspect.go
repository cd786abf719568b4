package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
	"github.com/df07/go-photon-mapper/pkg/material"
	"github.com/df07/go-photon-mapper/pkg/photonmap"
	"github.com/df07/go-photon-mapper/pkg/renderer"
)

// InspectResponse describes the surface seen through one pixel
type InspectResponse struct {
	Hit          bool                   `json:"hit"`
	MaterialName string                 `json:"materialName"`
	GeometryType string                 `json:"geometryType"`
	Point        [3]float64             `json:"point"`
	Normal       [3]float64             `json:"normal"`
	Distance     float64                `json:"distance"`
	Properties   map[string]interface{} `json:"properties"`
}

func vecArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// extractMaterialInfo lists the Phong coefficients of a material
func extractMaterialInfo(m *material.Material) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	diffuse := m.AverageDiffuse()
	properties := map[string]interface{}{
		"diffuse":     vecArray(diffuse),
		"reflective":  vecArray(m.Reflective),
		"emitted":     vecArray(m.Emitted),
		"transmitted": vecArray(m.Transmitted),
		"color":       hexColor(diffuse),
	}
	if _, textured := m.Diffuse.(*material.ImageTexture); textured {
		properties["textured"] = true
	}
	return properties
}

// hexColor formats a linear color as an sRGB CSS color
func hexColor(c core.Vec3) string {
	rgba := renderer.ToRGBA(c)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

// extractGeometryInfo describes the primitive that was hit
func extractGeometryInfo(p geometry.Primitive) (string, map[string]interface{}) {
	properties := make(map[string]interface{})

	switch geom := p.(type) {
	case *geometry.Sphere:
		properties["center"] = vecArray(geom.Center)
		properties["radius"] = geom.Radius
		return "sphere", properties

	case *geometry.CylinderRing:
		properties["center"] = vecArray(geom.Center)
		properties["height"] = geom.Height
		properties["innerRadius"] = geom.InnerRadius
		properties["outerRadius"] = geom.OuterRadius
		return "cylinder_ring", properties

	case *geometry.Face:
		corners := make([][3]float64, 4)
		for i := range corners {
			corners[i] = vecArray(geom.Point(i))
		}
		properties["corners"] = corners
		properties["normal"] = vecArray(geom.Normal())
		properties["area"] = geom.Area()
		if m := geom.Material(); m != nil && m.IsEmissive() {
			return "quad_light", properties
		}
		return "quad", properties

	default:
		return "unknown", properties
	}
}

// handleInspect casts the center ray of a pixel and reports the nearest surface
func (s *Server) handleInspect(c echo.Context) error {
	req, err := parseRenderRequest(c.QueryParams())
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid scene parameters: " + err.Error()})
	}

	pixelX, err := strconv.Atoi(c.QueryParam("x"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid x coordinate"})
	}
	pixelY, err := strconv.Atoi(c.QueryParam("y"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid y coordinate"})
	}
	if pixelX < 0 || pixelX >= req.Width || pixelY < 0 || pixelY >= req.Height {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Pixel coordinates out of bounds"})
	}

	cfg := req.Config()
	sc, err := s.openScene(req.Scene, cfg)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	// row 0 is the top of the image, screen y grows upwards
	x, y := renderer.ScreenCoordinates(float64(pixelX)+0.5, float64(req.Height-1-pixelY)+0.5, req.Width, req.Height)
	ray := sc.Camera.GenerateRay(x, y)

	rt := renderer.NewRaytracer(sc, cfg, nil)
	hit := geometry.NewHitRecord()
	if !rt.CastRay(ray, &hit, false) {
		return c.JSON(http.StatusOK, InspectResponse{Hit: false})
	}

	geometryType, geometryProps := extractGeometryInfo(hit.Primitive)
	materialName := ""
	if hit.Material != nil {
		materialName = hit.Material.Name
	}

	return c.JSON(http.StatusOK, InspectResponse{
		Hit:          true,
		MaterialName: materialName,
		GeometryType: geometryType,
		Point:        vecArray(ray.At(hit.T)),
		Normal:       vecArray(hit.Normal),
		Distance:     hit.T,
		Properties: map[string]interface{}{
			"material": extractMaterialInfo(hit.Material),
			"geometry": geometryProps,
		},
	})
}

// PhotonResponse summarises a photon tracing run
type PhotonResponse struct {
	Scene      string                      `json:"scene"`
	Shot       int                         `json:"shot"`
	Stored     int                         `json:"stored"`
	TreeNodes  int                         `json:"treeNodes"`
	TreeDepth  int                         `json:"treeDepth"`
	Primitives []photonmap.PrimitiveEnergy `json:"primitives"`
}

// handlePhotons traces the photon map for a scene and returns the energy per primitive
func (s *Server) handlePhotons(c echo.Context) error {
	req, err := parseRenderRequest(c.QueryParams())
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid scene parameters: " + err.Error()})
	}

	cfg := req.Config()
	sc, err := s.openScene(req.Scene, cfg)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	logger := NewConsoleLogger(fmt.Sprintf("photons-%s", req.Scene), s.logOutput, nil)
	pm := photonmap.New(sc, renderer.NewRaytracer(sc, cfg, logger), cfg, logger)
	if err := pm.TraceAllPhotons(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	stats := pm.Tree().Stats()
	return c.JSON(http.StatusOK, PhotonResponse{
		Scene:      req.Scene,
		Shot:       cfg.NumPhotonsToShoot,
		Stored:     stats.Photons,
		TreeNodes:  stats.TotalNodes,
		TreeDepth:  stats.MaxDepth,
		Primitives: pm.PrimitiveEnergyReport(),
	})
}
