package cmd

import (
	"os"

	"go.uber.org/dig"

	"github.com/depdoctor/depdoctor/application"
	"github.com/depdoctor/depdoctor/config"
	"github.com/depdoctor/depdoctor/domain"
	"github.com/depdoctor/depdoctor/infrastructure/changelog"
	"github.com/depdoctor/depdoctor/infrastructure/console"
	"github.com/depdoctor/depdoctor/infrastructure/llm"
	"github.com/depdoctor/depdoctor/infrastructure/manifest"
	"github.com/depdoctor/depdoctor/infrastructure/registry"
	"github.com/depdoctor/depdoctor/infrastructure/scanner"
)

// buildService wires all collaborators through a dig container and returns
// the configured orchestrator.
func buildService(cfg *config.Config, manifestPath string, autoYes bool) (*application.UpdateService, error) {
	container := dig.New()

	constructors := []any{
		func() *config.Config { return cfg },
		func() (domain.ManifestStore, error) { return manifest.Load(manifestPath) },
		func(c *config.Config) domain.RegistryClient {
			return registry.New(c.RegistryURL, c.RequestTimeout)
		},
		func(c *config.Config) domain.ChangelogFetcher {
			return changelog.New(c.GitHubToken)
		},
		func(c *config.Config) domain.Completer {
			return llm.New(c.OpenAIKey, c.Model, c.RequestTimeout)
		},
		func() domain.Confirmer {
			if autoYes {
				return console.AutoConfirmer{}
			}
			return console.NewTerminalConfirmer(os.Stdin, os.Stdout)
		},
		func() domain.UsageScanner { return scanner.New() },
		application.NewRiskClassifier,
		application.NewPatchGenerator,
		func(confirmer domain.Confirmer) *application.PatchApplier {
			return application.NewPatchApplier(confirmer, os.Stdout)
		},
		application.NewUpdateService,
	}

	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return nil, err
		}
	}

	var service *application.UpdateService
	if err := container.Invoke(func(s *application.UpdateService) {
		service = s
	}); err != nil {
		// Surface the constructor's own error (e.g. a manifest failure)
		// instead of the container's wrapper.
		return nil, dig.RootCause(err)
	}
	return service, nil
}
