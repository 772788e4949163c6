package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

var cornerPointsProperty = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x": map[string]interface{}{"type": "number"},
			"y": map[string]interface{}{"type": "number"},
		},
		"required": []string{"x", "y"},
	},
	"minItems":    4,
	"maxItems":    4,
	"description": "The four plate corners in source pixels, in any order. If omitted, the whole image is treated as the plate.",
}

var scaleProperty = map[string]interface{}{
	"type":        "number",
	"description": "Optional scale factor for the returned image. Default 1.0",
	"default":     1.0,
}

// plateProperties returns the properties shared by every tool that runs the
// pipeline, merged with extra.
func plateProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path":   pathProperty,
		"points": cornerPointsProperty,
		"width": map[string]interface{}{
			"type":        "integer",
			"description": "Rectified plate width in pixels (default from server configuration, normally 300)",
		},
		"height": map[string]interface{}{
			"type":        "integer",
			"description": "Rectified plate height in pixels (default from server configuration, normally 150)",
		},
		"border": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"mode": map[string]interface{}{
					"type": "string",
					"enum": []string{"constant", "reflect"},
				},
				"color": map[string]interface{}{
					"type":        "string",
					"description": "Fill color for constant mode as #RRGGBB or #RRGGBBAA",
				},
			},
			"description": "How pixels mapped from outside the source image are filled",
		},
		"threshold": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"adaptive", "otsu"},
			"description": "Binarization method",
		},
		"polarity": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"dark_on_light", "light_on_dark"},
			"description": "Whether characters are darker or lighter than the plate",
		},
		"retrieval": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"external", "list", "tree"},
			"description": "Which contours are extracted",
		},
		"min_area": map[string]interface{}{
			"type":        "number",
			"description": "Candidate area lower bound (exclusive)",
		},
		"max_area": map[string]interface{}{
			"type":        "number",
			"description": "Candidate area upper bound (exclusive)",
		},
		"scale_policy": map[string]interface{}{
			"type":        "boolean",
			"description": "Scale the candidate area bounds to the rectified frame size",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Source images
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. Loaded images are cached for later plate operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_colors",
			Description: "Average the color around one or more pixels. The mean hex value can be used as a constant border color for rectification.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string", "description": "Optional label for this point"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Pixels to sample",
					},
					"radius": map[string]interface{}{
						"type":        "integer",
						"description": "Half-size of the averaging window (default 2, 0 samples single pixels)",
						"default":     defaultSampleRadius,
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// Geometry
		{
			Name:        "plate_order_corners",
			Description: "Assign top-left, top-right, bottom-right and bottom-left roles to four unordered corner points.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": cornerPointsProperty,
				},
				"required": []string{"points"},
			},
		},
		{
			Name:        "plate_measure",
			Description: "Measure the side lengths, tilt and aspect ratio of a plate quadrilateral, and suggest a rectified height for a given width.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": cornerPointsProperty,
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Target width for the suggested height (default from server configuration)",
					},
				},
				"required": []string{"points"},
			},
		},

		// Pipeline
		{
			Name:        "plate_rectify",
			Description: "Warp the plate region bounded by four corner points into a frontal, fixed-size image and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": plateProperties(map[string]interface{}{
					"scale": scaleProperty,
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_binarize",
			Description: "Rectify, enhance and binarize a plate. Returns the binary mask (characters white) as base64-encoded PNG. Set compare to get both adaptive and Otsu masks.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": plateProperties(map[string]interface{}{
					"compare": map[string]interface{}{
						"type":        "boolean",
						"description": "Return adaptive and Otsu results side by side. Default false",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_segment",
			Description: "Run the full plate pipeline and return contour counts, character candidates with bounding boxes, and segmentation warnings.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": plateProperties(nil),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "plate_overlay",
			Description: "Draw the analysis on an image: candidate boxes on the rectified plate, or the ordered plate outline on the source image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": plateProperties(map[string]interface{}{
					"view": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"rectified", "source"},
						"description": "Which image to draw on. Default rectified",
						"default":     "rectified",
					},
					"all_contours": map[string]interface{}{
						"type":        "boolean",
						"description": "Outline every contour, not just candidates. Default false",
						"default":     false,
					},
					"box_color": map[string]interface{}{
						"type":        "string",
						"description": "Box color as #RRGGBB (default #00FF00)",
					},
					"scale": scaleProperty,
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "plate_save",
			Description: "Run the pipeline and save the rectified, grayscale, enhanced and binary images plus a JSON summary under the output directory with a sequence-numbered name.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": plateProperties(map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Base name for the saved files (default: source file name)",
					},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return reply(req.ID, map[string]interface{}{"tools": GetToolDefinitions()})
}
