// Package geometry implements the four-point perspective rectification stage.
//
// The package is pure math plus one resampling routine: it assigns corner roles
// to an unordered set of four points, estimates the projective transform
// (homography) that maps those corners onto an axis-aligned rectangle, and
// resamples a source image through the inverse of that transform.
//
// # Coordinate System
//
// Coordinates follow the image convention used throughout this module:
// (0,0) is the top-left pixel center, X increases rightward and Y increases
// downward. Points are real-valued so that user-picked corners can fall
// between pixel centers.
//
// # Corner Roles
//
// For each point s = x + y and d = y - x are computed. The top-left corner
// minimizes s, the bottom-right maximizes s, the top-right minimizes d and the
// bottom-left maximizes d. Ties resolve to the earliest point in input order.
// The rule assumes a roughly axis-aligned quadrilateral; inputs where two roles
// land on the same point (for example a square rotated by 45 degrees) are
// rejected with ErrDegenerateQuadrilateral.
//
// # Border Policies
//
// Destination pixels whose source location falls outside the image are filled
// according to a BorderPolicy: either a constant color or a reflection of the
// source content (edge pixel repeated, "fedcba|abcdefgh|hgfedcb").
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use. PointCollector is
// the only stateful type and is not safe for concurrent use; it belongs to
// whichever UI goroutine collects the points.
package geometry
