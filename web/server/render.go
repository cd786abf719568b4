package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/df07/go-photon-mapper/pkg/photonmap"
	"github.com/df07/go-photon-mapper/pkg/renderer"
	"github.com/df07/go-photon-mapper/pkg/scene"
)

// SSEEvent is one server-sent event; Data must be a single line
type SSEEvent struct {
	Type string `json:"type"` // "console", "passComplete", "error" or "complete"
	Data string `json:"data"`
}

// PassUpdate is sent after every progressive pass
type PassUpdate struct {
	PassNumber     int     `json:"passNumber"`
	TotalPasses    int     `json:"totalPasses"`
	ImageData      string  `json:"imageData"` // Base64 encoded PNG
	ElapsedMs      int64   `json:"elapsedMs"`
	TotalPixels    int     `json:"totalPixels"`
	TotalSamples   int     `json:"totalSamples"`
	AverageSamples float64 `json:"averageSamples"`
	MinSamples     int     `json:"minSamples"`
	MaxSamplesUsed int     `json:"maxSamplesUsed"`
	PrimitiveCount int     `json:"primitiveCount"`
	PhotonCount    int     `json:"photonCount"`
	Luminance      float64 `json:"luminance"` // Average displayed luminance in [0, 1]
	IsComplete     bool    `json:"isComplete"`
}

// RenderingPipeline contains the configured scene, photon map and renderer
type RenderingPipeline struct {
	Scene       *scene.Scene
	Raytracer   *renderer.Raytracer
	Photons     *photonmap.PhotonMapper // nil unless gathering
	Progressive *renderer.ProgressiveRenderer
}

// setupRenderingPipeline loads the scene and traces photons when the request gathers
func (s *Server) setupRenderingPipeline(ctx context.Context, req *RenderRequest, logger *ConsoleLogger) (*RenderingPipeline, error) {
	cfg := req.Config()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sc, err := s.openScene(req.Scene, cfg)
	if err != nil {
		return nil, err
	}
	logger.Printf("Loaded scene %q: %d quads, %d primitives, %d lights\n",
		sc.Name, len(sc.OriginalQuads), len(sc.Primitives), len(sc.Lights))

	pipeline := &RenderingPipeline{
		Scene:     sc,
		Raytracer: renderer.NewRaytracer(sc, cfg, logger),
	}

	if cfg.GatherIndirect {
		pm := photonmap.New(sc, pipeline.Raytracer, cfg, logger)
		if err := pm.TraceAllPhotons(ctx); err != nil {
			return nil, fmt.Errorf("photon tracing failed: %w", err)
		}
		pipeline.Raytracer.SetGatherer(pm)
		pipeline.Photons = pm
	}

	pipeline.Progressive = renderer.NewProgressiveRenderer(pipeline.Raytracer, sc.Camera, cfg, logger)
	return pipeline, nil
}

// handleRender streams a progressive render as server-sent events. Problems
// after the stream has started are reported as "error" events.
func (s *Server) handleRender(c echo.Context) error {
	w := c.Response()
	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()

	// a single goroutine owns the response writer
	events := make(chan SSEEvent, 100)
	writerDone := make(chan struct{})
	go func() {
		writeSSEEvents(ctx, w, events)
		close(writerDone)
	}()
	defer func() {
		close(events)
		<-writerDone
	}()

	req, err := parseRenderRequest(c.QueryParams())
	if err != nil {
		sendEvent(ctx, events, "error", fmt.Sprintf("Invalid request: %v", err))
		return nil
	}

	renderID := fmt.Sprintf("render-%d", time.Now().UnixNano())
	consoleChan := make(chan ConsoleMessage, 50)
	logger := NewConsoleLogger(renderID, s.logOutput, consoleChan)
	forwardDone := make(chan struct{})
	go func() {
		streamConsoleMessages(ctx, consoleChan, events)
		close(forwardDone)
	}()
	stopConsole := func() {
		close(consoleChan)
		<-forwardDone
	}

	start := time.Now()
	pipeline, err := s.setupRenderingPipeline(ctx, req, logger)
	if err != nil {
		stopConsole()
		sendEvent(ctx, events, "error", err.Error())
		return nil
	}

	totalPasses := len(pipeline.Progressive.PassSchedule())
	_, _, err = pipeline.Progressive.Render(ctx, func(result renderer.PassResult) {
		handlePassComplete(ctx, events, result, totalPasses, pipeline, start)
	})
	stopConsole()
	if err != nil {
		sendEvent(ctx, events, "error", fmt.Sprintf("Rendering failed: %v", err))
		return nil
	}

	sendEvent(ctx, events, "complete", "Rendering completed")
	return nil
}

// setSSEHeaders sets the required headers for Server-Sent Events
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// writeSSEEvents writes events until the channel closes or the client goes away
func writeSSEEvents(ctx context.Context, w io.Writer, events <-chan SSEEvent) {
	flusher, _ := w.(http.Flusher)
	failed := false
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			// keep draining after a failed write so senders never block
			if failed {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				failed = true
				continue
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-ctx.Done():
			return
		}
	}
}

// streamConsoleMessages forwards log lines as "console" events until consoleChan closes
func streamConsoleMessages(ctx context.Context, consoleChan <-chan ConsoleMessage, events chan<- SSEEvent) {
	for msg := range consoleChan {
		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Error marshaling console message: %v", err)
			continue
		}
		select {
		case events <- SSEEvent{Type: "console", Data: string(data)}:
		case <-ctx.Done():
		}
	}
}

func handlePassComplete(ctx context.Context, events chan<- SSEEvent, result renderer.PassResult, totalPasses int, pipeline *RenderingPipeline, start time.Time) {
	imageData, err := imageToBase64PNG(result.Image)
	if err != nil {
		log.Printf("Error encoding pass %d: %v", result.PassNumber, err)
		return
	}

	update := PassUpdate{
		PassNumber:     result.PassNumber,
		TotalPasses:    totalPasses,
		ImageData:      imageData,
		ElapsedMs:      time.Since(start).Milliseconds(),
		TotalPixels:    result.Stats.TotalPixels,
		TotalSamples:   result.Stats.TotalSamples,
		AverageSamples: result.Stats.AverageSamples,
		MinSamples:     result.Stats.MinSamples,
		MaxSamplesUsed: result.Stats.MaxSamplesUsed,
		PrimitiveCount: pipeline.Scene.GetPrimitiveCount(),
		Luminance:      renderer.CalculateAverageLuminance(result.Image),
		IsComplete:     result.IsLast,
	}
	if pipeline.Photons != nil {
		if tree := pipeline.Photons.Tree(); tree != nil {
			update.PhotonCount = tree.Len()
		}
	}

	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("Error marshaling pass update: %v", err)
		return
	}
	sendEvent(ctx, events, "passComplete", string(data))
}

// sendEvent queues an event unless the client has gone away
func sendEvent(ctx context.Context, events chan<- SSEEvent, eventType, data string) {
	data = strings.ReplaceAll(data, "\n", " ")
	select {
	case events <- SSEEvent{Type: eventType, Data: data}:
	case <-ctx.Done():
	}
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
