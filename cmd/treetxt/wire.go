//go:build wireinject

package main

import (
	"log/slog"

	"github.com/google/wire"
	"github.com/hayeah/treetxt/internal/controller"
)

var Wires = wire.NewSet(
	ProvideIgnore,
	ProvideTree,
	ProvideConfigFile,
	ProvideOptions,
	ProvideCounter,
	ProvideMetrics,
	ProvideExporter,
	ProvideStore,
	controller.NewSession,
	wire.Struct(new(App), "Args", "Logger", "Session", "Metrics", "ConfigFile"),
)

func BuildApp(args Args, logger *slog.Logger) (*App, func(), error) {
	wire.Build(Wires)
	return nil, nil, nil
}
