package server

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/df07/go-photon-mapper/pkg/core"
	"github.com/df07/go-photon-mapper/pkg/geometry"
	"github.com/df07/go-photon-mapper/pkg/scene"
)

// Request limits shared by the render, inspect and photon endpoints
const (
	minImageSize = 16
	maxImageSize = 2000
	maxSamples   = 1024
	maxBounces   = 64
	maxShadows   = 256
	maxPhotons   = 2000000
	maxCollect   = 10000
)

// Server serves progressive photon-mapped renders over HTTP
type Server struct {
	port      int
	scenesDir string
	logOutput io.Writer
	echo      *echo.Echo
}

// NewServer creates a server. scenesDir may be empty to search for ./scenes.
func NewServer(port int, scenesDir string) *Server {
	s := &Server{
		port:      port,
		scenesDir: scenesDir,
		logOutput: os.Stdout,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(corsMiddleware)

	e.Static("/", "static")
	e.GET("/api/health", s.handleHealth)
	e.GET("/api/scenes", s.handleScenes)
	e.GET("/api/scene-config", s.handleSceneConfig)
	e.GET("/api/render", s.handleRender)
	e.GET("/api/inspect", s.handleInspect)
	e.GET("/api/photons", s.handlePhotons)

	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until the listener fails
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Printf("Starting web server on http://localhost%s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func corsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Access-Control-Allow-Origin", "*")
		c.Response().Header().Set("Access-Control-Allow-Methods", "GET")
		c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		return next(c)
	}
}

// HealthResponse reports that the server is up and what it is running on
type HealthResponse struct {
	Status        string `json:"status"`
	LogicalCPUs   int    `json:"logicalCpus,omitempty"`
	TotalMemoryMB uint64 `json:"totalMemoryMB,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	response := HealthResponse{Status: "ok"}
	// host details are best effort
	if n, err := cpu.Counts(true); err == nil {
		response.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		response.TotalMemoryMB = vm.Total / (1024 * 1024)
	}
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleScenes(c echo.Context) error {
	scenes, err := scene.ListAllScenes(s.scenesDir)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, scenes)
}

// handleSceneConfig returns the default render settings and the accepted ranges
func (s *Server) handleSceneConfig(c echo.Context) error {
	sceneID := c.QueryParam("scene")
	if sceneID == "" {
		sceneID = defaultSceneID
	}
	if _, err := s.openScene(sceneID, core.DefaultConfig()); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	defaults := core.DefaultConfig()
	response := map[string]interface{}{
		"scene": sceneID,
		"defaults": map[string]interface{}{
			"width":         defaults.Width,
			"height":        defaults.Height,
			"samples":       defaults.NumAntialiasSamples,
			"bounces":       defaults.NumBounces,
			"shadowSamples": defaults.NumShadowSamples,
			"photons":       defaults.NumPhotonsToShoot,
			"collect":       defaults.NumPhotonsToCollect,
			"gather":        defaults.GatherIndirect,
			"seed":          defaults.Seed,
		},
		"limits": map[string]interface{}{
			"width":         map[string]int{"min": minImageSize, "max": maxImageSize},
			"height":        map[string]int{"min": minImageSize, "max": maxImageSize},
			"samples":       map[string]int{"min": 1, "max": maxSamples},
			"bounces":       map[string]int{"min": 0, "max": maxBounces},
			"shadowSamples": map[string]int{"min": 0, "max": maxShadows},
			"photons":       map[string]int{"min": 0, "max": maxPhotons},
			"collect":       map[string]int{"min": 1, "max": maxCollect},
		},
	}
	return c.JSON(http.StatusOK, response)
}

const defaultSceneID = "cornell-box"

// RenderRequest holds the scene and settings shared by every endpoint
type RenderRequest struct {
	Scene         string `json:"scene"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Samples       int    `json:"samples"`       // Antialiasing samples per pixel
	Bounces       int    `json:"bounces"`       // Reflection bounces
	ShadowSamples int    `json:"shadowSamples"` // Shadow rays per light
	Photons       int    `json:"photons"`       // Photons to shoot
	Collect       int    `json:"collect"`       // Photons per gather
	Gather        bool   `json:"gather"`        // Use the photon map for indirect light
	Seed          int64  `json:"seed"`
}

// parseRenderRequest reads the query parameters, falling back to core.DefaultConfig
func parseRenderRequest(values url.Values) (*RenderRequest, error) {
	defaults := core.DefaultConfig()
	req := &RenderRequest{Scene: values.Get("scene")}
	if req.Scene == "" {
		req.Scene = defaultSceneID
	}

	var err error
	if req.Width, err = parseIntParam(values, "width", defaults.Width, minImageSize, maxImageSize); err != nil {
		return nil, err
	}
	if req.Height, err = parseIntParam(values, "height", defaults.Height, minImageSize, maxImageSize); err != nil {
		return nil, err
	}
	if req.Samples, err = parseIntParam(values, "samples", defaults.NumAntialiasSamples, 1, maxSamples); err != nil {
		return nil, err
	}
	if req.Bounces, err = parseIntParam(values, "bounces", defaults.NumBounces, 0, maxBounces); err != nil {
		return nil, err
	}
	if req.ShadowSamples, err = parseIntParam(values, "shadowSamples", defaults.NumShadowSamples, 0, maxShadows); err != nil {
		return nil, err
	}
	if req.Photons, err = parseIntParam(values, "photons", defaults.NumPhotonsToShoot, 0, maxPhotons); err != nil {
		return nil, err
	}
	if req.Collect, err = parseIntParam(values, "collect", defaults.NumPhotonsToCollect, 1, maxCollect); err != nil {
		return nil, err
	}
	if req.Gather, err = parseBoolParam(values, "gather", defaults.GatherIndirect); err != nil {
		return nil, err
	}
	seed, err := parseIntParam(values, "seed", int(defaults.Seed), 0, 1<<31-1)
	if err != nil {
		return nil, err
	}
	req.Seed = int64(seed)

	if req.Width*req.Height > 800*600 && req.Samples > 64 {
		log.Printf("Render warning: Large image with high samples may render slowly")
	}
	return req, nil
}

// Config turns the request into a render configuration
func (req *RenderRequest) Config() core.Config {
	cfg := core.DefaultConfig()
	cfg.Width = req.Width
	cfg.Height = req.Height
	cfg.NumAntialiasSamples = req.Samples
	cfg.NumBounces = req.Bounces
	cfg.NumShadowSamples = req.ShadowSamples
	cfg.NumPhotonsToShoot = req.Photons
	cfg.NumPhotonsToCollect = req.Collect
	cfg.GatherIndirect = req.Gather
	cfg.Seed = req.Seed
	return cfg
}

// openScene builds a fresh scene with the request's rasterization settings.
// Only listed scenes resolve, never arbitrary paths.
func (s *Server) openScene(id string, cfg core.Config) (*scene.Scene, error) {
	opts := scene.DefaultLoadOptions()
	opts.Raster = geometry.NewRasterConfig(cfg)
	sc, err := scene.OpenKnown(id, s.scenesDir, opts)
	if err != nil {
		return nil, err
	}
	sc.EnsureCamera()
	return sc, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseBoolParam parses a boolean parameter from URL query
func parseBoolParam(values url.Values, key string, defaultValue bool) (bool, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %s", key, value)
		}
		return parsed, nil
	}
	return defaultValue, nil
}
