package server

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"math"
	"path/filepath"
	"strings"

	"github.com/ironsheep/plate-tools-mcp/internal/config"
	"github.com/ironsheep/plate-tools-mcp/internal/contour"
	"github.com/ironsheep/plate-tools-mcp/internal/geometry"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
)

const defaultSampleRadius = 2

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "plate_segment").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return fail(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	if s.debug {
		log.Printf("tools/call %s", params.Name)
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		if s.debug {
			log.Printf("tools/call %s failed: %v", params.Name, err)
		}
		return fail(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return reply(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": mustMarshalJSON(result)},
		},
	})
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each plate handler:
//  1. Unmarshals arguments from JSON
//  2. Overlays them on the server's default pipeline options
//  3. Loads the source image from the cache
//  4. Runs the pipeline (or the single stage the tool exposes)
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Source images
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_sample_colors":
		return s.handleImageSampleColors(args)

	// Geometry
	case "plate_order_corners":
		return s.handlePlateOrderCorners(args)
	case "plate_measure":
		return s.handlePlateMeasure(args)

	// Pipeline
	case "plate_rectify":
		return s.handlePlateRectify(args)
	case "plate_binarize":
		return s.handlePlateBinarize(args)
	case "plate_segment":
		return s.handlePlateSegment(args)
	case "plate_overlay":
		return s.handlePlateOverlay(args)
	case "plate_save":
		return s.handlePlateSave(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Source Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type sampleColorsArgs struct {
	Path   string                 `json:"path"`
	Points []imaging.LabeledPoint `json:"points"`
	Radius *int                   `json:"radius"`
}

func (s *Server) handleImageSampleColors(args json.RawMessage) (interface{}, error) {
	var a sampleColorsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	radius := defaultSampleRadius
	if a.Radius != nil {
		radius = *a.Radius
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColors(img, a.Points, radius)
}

// === Geometry Handlers ===

type cornersArgs struct {
	Points []geometry.Point2D `json:"points"`
	Width  int                `json:"width"`
}

func (s *Server) handlePlateOrderCorners(args json.RawMessage) (interface{}, error) {
	var a cornersArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	q, err := geometry.NewQuadrilateral(a.Points)
	if err != nil {
		return nil, err
	}
	c, err := geometry.OrderCorners(q)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type measureResult struct {
	geometry.Measurement
	SuggestedWidth  int `json:"suggested_width"`
	SuggestedHeight int `json:"suggested_height"`
}

func (s *Server) handlePlateMeasure(args json.RawMessage) (interface{}, error) {
	var a cornersArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Width == 0 {
		a.Width = s.opts.TargetWidth
	}
	if a.Width < 0 {
		return nil, fmt.Errorf("%w: width %d", geometry.ErrInvalidDimensions, a.Width)
	}
	q, err := geometry.NewQuadrilateral(a.Points)
	if err != nil {
		return nil, err
	}
	m, err := geometry.Measure(q)
	if err != nil {
		return nil, err
	}
	return &measureResult{
		Measurement:     m,
		SuggestedWidth:  a.Width,
		SuggestedHeight: m.SuggestHeight(a.Width),
	}, nil
}

// === Pipeline Handlers ===

type borderArgs struct {
	Mode  string `json:"mode"`
	Color string `json:"color"`
}

// plateArgs are the arguments shared by every tool that runs the pipeline.
// Zero values keep the server defaults.
type plateArgs struct {
	Path        string             `json:"path"`
	Points      []geometry.Point2D `json:"points"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Border      *borderArgs        `json:"border"`
	Threshold   string             `json:"threshold"`
	Polarity    string             `json:"polarity"`
	Retrieval   string             `json:"retrieval"`
	MinArea     *float64           `json:"min_area"`
	MaxArea     *float64           `json:"max_area"`
	ScalePolicy *bool              `json:"scale_policy"`
}

// options overlays a on the server defaults and validates the result.
func (s *Server) options(a plateArgs) (pipeline.Options, error) {
	opts := s.opts
	if a.Width != 0 {
		opts.TargetWidth = a.Width
	}
	if a.Height != 0 {
		opts.TargetHeight = a.Height
	}

	var err error
	if a.Border != nil {
		if opts.Border, err = config.ParseBorder(config.Border{Mode: a.Border.Mode, Color: a.Border.Color}); err != nil {
			return opts, err
		}
	}
	if a.Threshold != "" {
		if opts.ThresholdMode, err = imaging.ParseThresholdMode(a.Threshold); err != nil {
			return opts, err
		}
	}
	if a.Polarity != "" {
		if opts.Polarity, err = imaging.ParsePolarity(a.Polarity); err != nil {
			return opts, err
		}
	}
	if a.Retrieval != "" {
		if opts.Retrieval, err = contour.ParseRetrievalMode(a.Retrieval); err != nil {
			return opts, err
		}
	}
	if a.MinArea != nil {
		opts.Policy.MinArea = *a.MinArea
	}
	if a.MaxArea != nil {
		opts.Policy.MaxArea = *a.MaxArea
	}
	if a.ScalePolicy != nil {
		opts.ScalePolicy = *a.ScalePolicy
	}

	return opts, opts.Validate()
}

// loadPlate returns the cached source image and its plate quadrilateral.
// Without points the whole image is the plate.
func (s *Server) loadPlate(a plateArgs) (image.Image, geometry.Quadrilateral, error) {
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, geometry.Quadrilateral{}, err
	}
	if len(a.Points) == 0 {
		b := img.Bounds()
		return img, geometry.Quadrilateral(geometry.RectCorners(b.Dx(), b.Dy()).Points()), nil
	}
	q, err := geometry.NewQuadrilateral(a.Points)
	return img, q, err
}

// run validates a and runs the whole pipeline on its plate.
func (s *Server) run(a plateArgs) (*pipeline.Result, error) {
	opts, err := s.options(a)
	if err != nil {
		return nil, err
	}
	img, q, err := s.loadPlate(a)
	if err != nil {
		return nil, err
	}
	return pipeline.Process(img, q, opts)
}

type rectifyArgs struct {
	plateArgs
	Scale float64 `json:"scale"`
}

type rectifyResult struct {
	Corners geometry.Corners `json:"corners"`
	*imaging.EncodedImage
}

func (s *Server) handlePlateRectify(args json.RawMessage) (interface{}, error) {
	var a rectifyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	opts, err := s.options(a.plateArgs)
	if err != nil {
		return nil, err
	}
	img, q, err := s.loadPlate(a.plateArgs)
	if err != nil {
		return nil, err
	}
	corners, err := geometry.OrderCorners(q)
	if err != nil {
		return nil, err
	}
	rectified, err := geometry.Rectify(img, q, opts.TargetWidth, opts.TargetHeight, opts.Border)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(rectified, a.Scale)
	if err != nil {
		return nil, err
	}
	return &rectifyResult{Corners: corners, EncodedImage: encoded}, nil
}

type binarizeArgs struct {
	plateArgs
	Compare bool `json:"compare"`
}

// binaryView describes one binarization of the plate.
type binaryView struct {
	Mode        string                `json:"mode"`
	InkPixels   int                   `json:"ink_pixels"`
	InkFraction float64               `json:"ink_fraction"`
	Contours    int                   `json:"contours"`
	Candidates  int                   `json:"candidates"`
	Image       *imaging.EncodedImage `json:"image"`
}

type comparisonResult struct {
	Adaptive *binaryView `json:"adaptive"`
	Otsu     *binaryView `json:"otsu"`
}

func (s *Server) handlePlateBinarize(args json.RawMessage) (interface{}, error) {
	var a binarizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if !a.Compare {
		res, err := s.run(a.plateArgs)
		if err != nil {
			return nil, err
		}
		return newBinaryView(res)
	}

	opts, err := s.options(a.plateArgs)
	if err != nil {
		return nil, err
	}
	img, q, err := s.loadPlate(a.plateArgs)
	if err != nil {
		return nil, err
	}

	cmp, err := pipeline.CompareThresholds(img, q, opts)
	if err != nil {
		return nil, err
	}
	adaptive, err := newBinaryView(cmp.Adaptive)
	if err != nil {
		return nil, err
	}
	otsu, err := newBinaryView(cmp.Otsu)
	if err != nil {
		return nil, err
	}
	return &comparisonResult{Adaptive: adaptive, Otsu: otsu}, nil
}

func newBinaryView(res *pipeline.Result) (*binaryView, error) {
	// Masks are never resized so they stay two-valued.
	encoded, err := imaging.EncodePNG(res.Binary, 1.0)
	if err != nil {
		return nil, err
	}
	ink := countInk(res.Binary)
	total := res.Binary.Bounds().Dx() * res.Binary.Bounds().Dy()
	return &binaryView{
		Mode:        res.Mode.String(),
		InkPixels:   ink,
		InkFraction: math.Round(float64(ink)/float64(total)*10000) / 10000,
		Contours:    len(res.Contours),
		Candidates:  res.Candidates.Count,
		Image:       encoded,
	}, nil
}

func countInk(mask *image.Gray) int {
	b := mask.Bounds()
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := mask.Pix[mask.PixOffset(b.Min.X, y):mask.PixOffset(b.Max.X, y)]
		for _, v := range row {
			if v == 255 {
				n++
			}
		}
	}
	return n
}

func (s *Server) handlePlateSegment(args json.RawMessage) (interface{}, error) {
	var a plateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res, err := s.run(a)
	if err != nil {
		return nil, err
	}
	summary := res.Summary()
	return &summary, nil
}

type overlayArgs struct {
	plateArgs
	View        string  `json:"view"`
	AllContours bool    `json:"all_contours"`
	BoxColor    string  `json:"box_color"`
	Scale       float64 `json:"scale"`
}

func (s *Server) handlePlateOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	style := imaging.DefaultOverlayStyle()
	if a.BoxColor != "" {
		c, err := imaging.ParseHexColor(a.BoxColor)
		if err != nil {
			return nil, err
		}
		style.BoxColor = c
		style.PolygonColor = c
	}

	opts, err := s.options(a.plateArgs)
	if err != nil {
		return nil, err
	}
	img, q, err := s.loadPlate(a.plateArgs)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(a.View) {
	case "", "rectified":
		res, err := pipeline.Process(img, q, opts)
		if err != nil {
			return nil, err
		}
		var boxes []image.Rectangle
		if a.AllContours {
			for _, c := range res.Contours {
				boxes = append(boxes, c.BoundingBox().Rect())
			}
		} else {
			for _, c := range res.Candidates.Candidates {
				boxes = append(boxes, c.Box.Rect())
			}
		}
		return imaging.EncodePNG(imaging.DrawBoxes(res.Rectified, boxes, style), a.Scale)

	case "source":
		corners, err := geometry.OrderCorners(q)
		if err != nil {
			return nil, err
		}
		var pts []image.Point
		for _, p := range corners.Points() {
			pts = append(pts, image.Pt(int(math.Round(p.X)), int(math.Round(p.Y))))
		}
		return imaging.EncodePNG(imaging.DrawPolygon(img, pts, style), a.Scale)

	default:
		return nil, fmt.Errorf("unknown view: %s (want rectified or source)", a.View)
	}
}

type saveArgs struct {
	plateArgs
	Name string `json:"name"`
}

func (s *Server) handlePlateSave(args json.RawMessage) (interface{}, error) {
	var a saveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res, err := s.run(a.plateArgs)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(a.Name)
	if a.Name == "" {
		name := filepath.Base(a.Path)
		base = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return s.store.Save(res, base, a.Path)
}
