package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"

	"github.com/notargets/geostokes/rheology"
	"github.com/notargets/geostokes/sim"
	"github.com/notargets/geostokes/utils"
)

// Parameters obtained from the YAML input file
type SimParameters struct {
	Title              string  `yaml:"Title"`
	Nx                 int     `yaml:"Nx"`
	Ny                 int     `yaml:"Ny"`
	XMin               float64 `yaml:"XMin"`
	XMax               float64 `yaml:"XMax"`
	YMin               float64 `yaml:"YMin"`
	YMax               float64 `yaml:"YMax"`
	GravityX           float64 `yaml:"GravityX"`
	GravityY           float64 `yaml:"GravityY"`
	Diffusivity        float64 `yaml:"Diffusivity"`
	ThermalExpansivity float64 `yaml:"ThermalExpansivity"`
	CFL                float64 `yaml:"CFL"`
	MaxDt              float64 `yaml:"MaxDt"`
	FinalTime          float64 `yaml:"FinalTime"`
	MaxSteps           int     `yaml:"MaxSteps"`
	Tolerance          float64 `yaml:"Tolerance"`
	MaxIterations      int     `yaml:"MaxIterations"`
	EtaMin             float64 `yaml:"EtaMin"`
	EtaMax             float64 `yaml:"EtaMax"`
	PenaltyFactor      float64 `yaml:"PenaltyFactor"`
	ParticlesPerCell   int     `yaml:"ParticlesPerCell"`
	Seed               int64   `yaml:"Seed"`
	ParallelDegree     int     `yaml:"ParallelDegree"`

	Materials []MaterialSpec `yaml:"Materials"`
	// First key is the wall (top/bottom/left/right), second is the component
	// (u/v/t); a component absent from the map is free
	BCs map[string]map[string]float64 `yaml:"BCs"`
}

// MaterialSpec is the YAML form of one material and its shape predicate.
type MaterialSpec struct {
	Name    string  `yaml:"Name"`
	Law     string  `yaml:"Law"` // constant | powerlaw
	Eta0    float64 `yaml:"Eta0"`
	A       float64 `yaml:"A"`
	N       float64 `yaml:"N"`
	Density float64 `yaml:"Density"`
	Shape   struct {
		Type   string  `yaml:"Type"` // everywhere | box | disc | layer
		XMin   float64 `yaml:"XMin"`
		XMax   float64 `yaml:"XMax"`
		YMin   float64 `yaml:"YMin"`
		YMax   float64 `yaml:"YMax"`
		CX     float64 `yaml:"CX"`
		CY     float64 `yaml:"CY"`
		Radius float64 `yaml:"Radius"`
	} `yaml:"Shape"`
}

func (sp *SimParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, sp)
}

func (sp *SimParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", sp.Title)
	fmt.Printf("[%d x %d]\t\t= Mesh Resolution\n", sp.Nx, sp.Ny)
	fmt.Printf("[%8.5f,%8.5f] x [%8.5f,%8.5f] = Domain\n", sp.XMin, sp.XMax, sp.YMin, sp.YMax)
	fmt.Printf("%8.5f\t\t= CFL\n", sp.CFL)
	fmt.Printf("%8.5f\t\t= FinalTime\n", sp.FinalTime)
	fmt.Printf("%8.5f\t\t= Diffusivity\n", sp.Diffusivity)
	fmt.Printf("[%d]\t\t\t= MaxIterations\n", sp.MaxIterations)
	for _, mat := range sp.Materials {
		fmt.Printf("Material[%s] = law %s, density %8.5f\n", mat.Name, mat.Law, mat.Density)
	}
	keys := make([]string, len(sp.BCs))
	i := 0
	for k := range sp.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%s] = %v\n", key, sp.BCs[key])
	}
}

// ToConfig converts the parsed parameters into a driver Config.
func (sp *SimParameters) ToConfig() (cfg sim.Config, err error) {
	cfg = sim.Config{
		Nx: sp.Nx, Ny: sp.Ny,
		XMin: sp.XMin, XMax: sp.XMax, YMin: sp.YMin, YMax: sp.YMax,
		Gravity:            [2]float64{sp.GravityX, sp.GravityY},
		Diffusivity:        sp.Diffusivity,
		ThermalExpansivity: sp.ThermalExpansivity,
		CFLFactor:          sp.CFL,
		MaxDt:              sp.MaxDt,
		Tolerance:          sp.Tolerance,
		MaxPicard:          sp.MaxIterations,
		EtaMin:             sp.EtaMin,
		EtaMax:             sp.EtaMax,
		PenaltyFactor:      sp.PenaltyFactor,
		ParticlesPerCell:   sp.ParticlesPerCell,
		Seed:               sp.Seed,
		ParallelDegree:     sp.ParallelDegree,
	}
	for id, spec := range sp.Materials {
		var mat *rheology.Material
		if mat, err = spec.toMaterial(id); err != nil {
			return
		}
		cfg.Materials = append(cfg.Materials, mat)
	}
	if cfg.BCs, err = sp.toBCSet(); err != nil {
		return
	}
	return
}

func (spec MaterialSpec) toMaterial(id int) (mat *rheology.Material, err error) {
	mat = &rheology.Material{
		ID:      id,
		Name:    spec.Name,
		Density: spec.Density,
	}
	switch spec.Law {
	case "constant", "":
		mat.Law = rheology.Constant
		mat.Eta0 = spec.Eta0
	case "powerlaw":
		mat.Law = rheology.PowerLaw
		mat.A = spec.A
		mat.N = spec.N
	default:
		err = fmt.Errorf("material %q: unknown law %q", spec.Name, spec.Law)
		return
	}
	switch spec.Shape.Type {
	case "everywhere", "":
		mat.Shape = rheology.Everywhere{}
	case "box":
		mat.Shape = rheology.Box{XMin: spec.Shape.XMin, XMax: spec.Shape.XMax, YMin: spec.Shape.YMin, YMax: spec.Shape.YMax}
	case "disc":
		mat.Shape = rheology.Disc{CX: spec.Shape.CX, CY: spec.Shape.CY, Radius: spec.Shape.Radius}
	case "layer":
		mat.Shape = rheology.Layer{YMin: spec.Shape.YMin, YMax: spec.Shape.YMax}
	default:
		err = fmt.Errorf("material %q: unknown shape type %q", spec.Name, spec.Shape.Type)
	}
	return
}

func (sp *SimParameters) toBCSet() (bcs utils.BCSet, err error) {
	for wallName, comps := range sp.BCs {
		var wall utils.WallBCs
		for comp, val := range comps {
			switch comp {
			case "u":
				wall.U = utils.DirichletBC(val)
			case "v":
				wall.V = utils.DirichletBC(val)
			case "t":
				wall.T = utils.DirichletBC(val)
			default:
				err = fmt.Errorf("wall %q: unknown component %q", wallName, comp)
				return
			}
		}
		switch wallName {
		case "top":
			bcs.Top = wall
		case "bottom":
			bcs.Bottom = wall
		case "left":
			bcs.Left = wall
		case "right":
			bcs.Right = wall
		default:
			err = fmt.Errorf("unknown wall %q", wallName)
			return
		}
	}
	return
}
