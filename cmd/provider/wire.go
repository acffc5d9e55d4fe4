//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/srcbook/websearch-mcp/internal/infrastructure"
	"github.com/srcbook/websearch-mcp/internal/interfaces"
)

func CreateApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		infrastructure.ProviderInfrastructure,
		interfaces.ProviderInterfaces,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
