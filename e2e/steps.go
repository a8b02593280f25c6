//go:build e2e

package e2e

import (
	"github.com/cucumber/godog"

	"navmenus/e2e/steps/navigation"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	navigation.RegisterSteps(ctx, tc)
}
