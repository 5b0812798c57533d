package transect

// EdgeType classifies the bank geometry at a channel edge.
type EdgeType string

const (
	EdgeTriangular  EdgeType = "Triangular"
	EdgeRectangular EdgeType = "Rectangular"
	EdgeCustom      EdgeType = "Custom"
	EdgeUserQ       EdgeType = "User Q"
)

// Edge velocity methods.
const (
	EdgeVelMeasMag = "MeasMag"
	EdgeVelProfile = "Profile"
)

// Rectangular-edge distance methods.
const (
	RecEdgeFixed    = "Fixed"
	RecEdgeVariable = "Variable"
)

const customCoefBase = 0.3535 // reference coefficient for custom edges

// Edge describes one bank of the cross section.
type Edge struct {
	Type         EdgeType
	DistanceM    float64 // distance from the bank to the first/last ensemble
	CustomCoef   float64 // user coefficient for Custom edges
	NumEnsembles int     // ensembles averaged for the edge velocity
	UserQ        float64 // user-supplied edge discharge for User Q edges
}

// AreaCoef is the edge coefficient used for cross-sectional area.
func (e Edge) AreaCoef() float64 {
	switch e.Type {
	case EdgeTriangular, EdgeUserQ:
		return 0.5
	case EdgeRectangular:
		return 1.0
	case EdgeCustom:
		return 0.5 + (e.CustomCoef - customCoefBase)
	}
	return 1.0
}

// DischargeCoef is the edge coefficient used for edge discharge.
func (e Edge) DischargeCoef() float64 {
	switch e.Type {
	case EdgeTriangular:
		return customCoefBase
	case EdgeRectangular:
		return 0.91
	case EdgeCustom:
		return e.CustomCoef
	case EdgeUserQ:
		return 0
	}
	return 0
}

// Edges holds both banks and the edge computation methods.
type Edges struct {
	Left  Edge
	Right Edge

	VelMethod     string // edge velocity method
	RecEdgeMethod string // rectangular-edge distance method
}
