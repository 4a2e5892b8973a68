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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScenarioLimits(t *testing.T) {
	{ // Default flags: the scenario file's limits win
		rm := &RunModel{MaxSteps: 100, FinalTime: 0}
		applyScenarioLimits(rm, 200, 500)
		assert.Equal(t, 200, rm.MaxSteps)
		assert.Equal(t, 500., rm.FinalTime)
	}
	{ // Explicit flags override the file
		rm := &RunModel{MaxSteps: 50, MaxStepsSet: true, FinalTime: 10, FinalTimeSet: true}
		applyScenarioLimits(rm, 200, 500)
		assert.Equal(t, 50, rm.MaxSteps)
		assert.Equal(t, 10., rm.FinalTime)
	}
	{ // A file without limits leaves the flag defaults in place
		rm := &RunModel{MaxSteps: 100}
		applyScenarioLimits(rm, 0, 0)
		assert.Equal(t, 100, rm.MaxSteps)
		assert.Equal(t, 0., rm.FinalTime)
	}
}
