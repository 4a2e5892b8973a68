/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/geostokes/InputParameters"
	"github.com/notargets/geostokes/sim"
	"github.com/notargets/geostokes/utils"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation scenario from a YAML input file or a named preset",
	Long: `Run a simulation scenario from a YAML input file or a named preset.

geostokes run --inputFile scenario.yaml
geostokes run --preset couette`,
	Run: func(cmd *cobra.Command, args []string) {
		var (
			err error
			rm  = &RunModel{}
		)
		fmt.Println("run called")
		if rm.InputFile, err = cmd.Flags().GetString("inputFile"); err != nil {
			panic(err)
		}
		rm.Preset, _ = cmd.Flags().GetString("preset")
		rm.MaxSteps, _ = cmd.Flags().GetInt("maxSteps")
		rm.FinalTime, _ = cmd.Flags().GetFloat64("finalTime")
		rm.Profile, _ = cmd.Flags().GetBool("profile")
		rm.LogFrequency, _ = cmd.Flags().GetInt("logFrequency")
		// Flag defaults must not shadow a scenario file's limits
		rm.MaxStepsSet = cmd.Flags().Changed("maxSteps")
		rm.FinalTimeSet = cmd.Flags().Changed("finalTime")
		RunSim(rm)
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("inputFile", "i", "", "YAML scenario file")
	RunCmd.Flags().StringP("preset", "p", "", "built-in scenario: couette, rayleightaylor, convection")
	RunCmd.Flags().IntP("maxSteps", "s", 100, "maximum number of time steps")
	RunCmd.Flags().Float64P("finalTime", "f", 0, "stop at this simulation time, 0 means run maxSteps")
	RunCmd.Flags().IntP("logFrequency", "l", 10, "steps between progress lines")
	RunCmd.Flags().Bool("profile", false, "write a CPU profile of the run")
}

type RunModel struct {
	InputFile    string
	Preset       string
	MaxSteps     int
	MaxStepsSet  bool // maxSteps given explicitly on the command line
	FinalTime    float64
	FinalTimeSet bool
	LogFrequency int
	Profile      bool
}

// applyScenarioLimits lets a scenario file's step and time limits take
// effect unless the corresponding flag was given explicitly.
func applyScenarioLimits(rm *RunModel, fileSteps int, fileTime float64) {
	if !rm.MaxStepsSet && fileSteps > 0 {
		rm.MaxSteps = fileSteps
	}
	if !rm.FinalTimeSet && fileTime > 0 {
		rm.FinalTime = fileTime
	}
}

func RunSim(rm *RunModel) {
	var (
		cfg sim.Config
		err error
	)
	switch {
	case rm.InputFile != "":
		var data []byte
		if data, err = ioutil.ReadFile(rm.InputFile); err != nil {
			fmt.Printf("unable to read input file: %v\n", err)
			os.Exit(1)
		}
		sp := &InputParameters.SimParameters{}
		if err = sp.Parse(data); err != nil {
			fmt.Printf("unable to parse input file: %v\n", err)
			os.Exit(1)
		}
		sp.Print()
		if cfg, err = sp.ToConfig(); err != nil {
			fmt.Printf("bad scenario: %v\n", err)
			os.Exit(1)
		}
		applyScenarioLimits(rm, sp.MaxSteps, sp.FinalTime)
	case rm.Preset != "":
		switch rm.Preset {
		case "couette":
			cfg = sim.CouetteConfig(128, 64, 1)
		case "rayleightaylor":
			cfg = sim.RayleighTaylorConfig(64, 64)
		case "convection":
			cfg = sim.ThermalConvectionConfig(64, 64, 1.e4, 1, 1)
		default:
			fmt.Printf("unknown preset %q\n", rm.Preset)
			os.Exit(1)
		}
	default:
		fmt.Println("one of --inputFile or --preset is required")
		os.Exit(1)
	}

	if rm.Profile {
		defer profile.Start(profile.CPUProfile).Stop()
	}

	var s *sim.Simulation
	if s, err = sim.NewSimulation(cfg); err != nil {
		fmt.Printf("unable to build simulation: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Mesh: %d x %d elements, %d nodes, %d particles\n",
		s.Mesh.Nx, s.Mesh.Ny, s.Mesh.NumNodes(), s.Swarm.NumParticles())

	start := time.Now()
	var steps int
	for steps = 0; steps < rm.MaxSteps; steps++ {
		if rm.FinalTime > 0 && s.Time >= rm.FinalTime {
			break
		}
		res, stepErr := s.Step()
		if stepErr != nil {
			fmt.Printf("step %d failed: %v\n", steps, stepErr)
			os.Exit(1)
		}
		if rm.LogFrequency > 0 && steps%rm.LogFrequency == 0 {
			fmt.Printf("Time = %8.4f, dt = %8.5f, stokes_iters[%d] = %d, resid = %10.4e, particles = %d\n",
				res.Time, res.Dt, res.Step, res.StokesIters, res.StokesResidual, res.ActiveParticles)
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("Completed %d steps to time %8.4f in %v\n", steps, s.Time, elapsed)
	fmt.Println(utils.GetMemUsage())
}
