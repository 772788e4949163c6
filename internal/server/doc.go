// Package server implements the MCP (Model Context Protocol) server for plate
// rectification and character segmentation.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Source images:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_sample_colors: Average colors around points (border color picking)
//
// Geometry:
//   - plate_order_corners: Assign corner roles to four points
//   - plate_measure: Side lengths, tilt and suggested frame size
//
// Pipeline:
//   - plate_rectify: Perspective-correct the plate
//   - plate_binarize: Binary mask, optionally adaptive and Otsu side by side
//   - plate_segment: Contours, candidates and segmentation warnings
//   - plate_overlay: Candidate boxes or the plate outline drawn on an image
//   - plate_save: Persist every stage image and a JSON summary
//
// Pipeline tools accept the same optional arguments (points, width, height,
// border, threshold, polarity, retrieval, min_area, max_area, scale_policy).
// Omitted arguments fall back to the configuration the server was created
// with; without points the whole image is the plate.
//
// # Image Caching
//
// Source images are cached by path in a bounded cache shared by all tools.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with code
// -32000 and the Go error string as data. Malformed tools/call parameters
// use -32602, unknown methods -32601 and unparseable lines -32700 with a
// null ID. Messages without an ID are notifications and get no response.
package server
