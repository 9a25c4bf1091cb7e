//go:build wireinject

package app

import (
	"github.com/google/wire"

	"ltpbot/internal/config"
	"ltpbot/internal/session"
)

func buildApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		provideLedgerStore,
		provideJournal,
		provideEndpoints,
		provideSessionOptions,
		session.NewController,
		provideHTTPServer,
		newApp,
	)
	return nil, nil, nil
}
