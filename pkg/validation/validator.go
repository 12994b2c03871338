package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// ErrInvalidRequest is wrapped by every request validation failure
	ErrInvalidRequest = errors.New("invalid request")

	MaxIDLength   = 200
	MaxNameLength = 200
	MaxLinePoints = 10000

	// ids end up in XML attributes and space-separated connectedTo lists
	idPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]+$`)
)

func init() {
	validate = validator.New()
}

// Point is a coordinate as sent by the map front-end
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Coord converts to a geo.Coordinate
func (p Point) Coord() geo.Coordinate {
	return geo.Coord(p.Lat, p.Lon)
}

// Coords converts a polyline
func Coords(points []Point) []geo.Coordinate {
	out := make([]geo.Coordinate, len(points))
	for i, p := range points {
		out[i] = p.Coord()
	}
	return out
}

// AddAssetRequest asks for a new asset of a catalog type inside an area or building
type AddAssetRequest struct {
	ContainerID string  `json:"container_id" validate:"required,max=200"`
	AssetID     string  `json:"asset_id" validate:"omitempty,max=200"`
	Type        string  `json:"type" validate:"required,max=100"`
	Name        string  `json:"name" validate:"omitempty,max=200"`
	Point       *Point  `json:"point" validate:"omitempty"`
	Line        []Point `json:"line" validate:"omitempty,min=2,max=10000,dive"`
	Length      float64 `json:"length" validate:"gte=0"`
}

// ConnectRequest asks for a link between two assets
type ConnectRequest struct {
	AssetID1 string `json:"asset_id_1" validate:"required,max=200"`
	AssetID2 string `json:"asset_id_2" validate:"required,max=200,nefield=AssetID1"`
}

// UpdatePointRequest moves a point asset
type UpdatePointRequest struct {
	AssetID string `json:"asset_id" validate:"required,max=200"`
	Point   Point  `json:"point"`
}

// UpdateLineRequest replaces the polyline of a conductor
type UpdateLineRequest struct {
	AssetID string  `json:"asset_id" validate:"required,max=200"`
	Line    []Point `json:"line" validate:"required,min=2,max=10000,dive"`
	Length  float64 `json:"length" validate:"gte=0"`
}

// ValidateAddAssetRequest validates the request shape and checks that the
// supplied geometry matches what the catalog expects for the type
func ValidateAddAssetRequest(req *AddAssetRequest) error {
	if req == nil {
		return invalid("add asset request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	if err := ValidateID("ContainerID", req.ContainerID); err != nil {
		return err
	}
	if req.AssetID != "" {
		if err := ValidateID("AssetID", req.AssetID); err != nil {
			return err
		}
	}

	spec, ok := model.LookupType(model.AssetType(req.Type))
	if !ok {
		return invalid("Type: unknown asset type %q", req.Type)
	}
	switch {
	case spec.Category == model.CategoryBuilding:
		if len(req.Line) > 0 {
			return invalid("Line: %s takes a point, not a line", req.Type)
		}
	case spec.Geometry == model.GeometryLine:
		if len(req.Line) < 2 {
			return invalid("Line: %s needs a line of at least 2 points", req.Type)
		}
		if req.Point != nil {
			return invalid("Point: %s takes a line, not a point", req.Type)
		}
	case spec.Geometry == model.GeometryPoint:
		if req.Point == nil {
			return invalid("Point: %s needs a point", req.Type)
		}
		if len(req.Line) > 0 {
			return invalid("Line: %s takes a point, not a line", req.Type)
		}
	}
	return nil
}

// ValidateConnectRequest validates a connect request
func ValidateConnectRequest(req *ConnectRequest) error {
	if req == nil {
		return invalid("connect request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateUpdatePointRequest validates a point move
func ValidateUpdatePointRequest(req *UpdatePointRequest) error {
	if req == nil {
		return invalid("update point request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateUpdateLineRequest validates a polyline replacement
func ValidateUpdateLineRequest(req *UpdateLineRequest) error {
	if req == nil {
		return invalid("update line request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateID checks an id used as a path or attribute value
func ValidateID(field, id string) error {
	if id == "" {
		return invalid("%s: field is required", field)
	}
	if len(id) > MaxIDLength {
		return invalid("%s: exceeds maximum length of %d characters", field, MaxIDLength)
	}
	if !idPattern.MatchString(id) {
		return invalid("%s: '%s' contains invalid characters (only alphanumeric, '_', '-', '.' and ':' allowed)", field, id)
	}
	return nil
}

// IsInvalidRequest reports whether err is a request validation failure
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return invalid("%v", err)
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		param := e.Param()

		switch e.Tag() {
		case "required":
			return invalid("%s: field is required", field)
		case "min":
			return invalid("%s: must have at least %s elements", field, param)
		case "max":
			return invalid("%s: must not exceed %s", field, param)
		case "gte":
			return invalid("%s: must be at least %s", field, param)
		case "lte":
			return invalid("%s: must be at most %s", field, param)
		case "nefield":
			return invalid("%s: must differ from %s", field, param)
		default:
			return invalid("%s: validation failed (%s)", field, e.Tag())
		}
	}

	return err
}
