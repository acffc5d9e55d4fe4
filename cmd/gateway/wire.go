//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/srcbook/websearch-mcp/internal/domain"
	"github.com/srcbook/websearch-mcp/internal/infrastructure"
	"github.com/srcbook/websearch-mcp/internal/interfaces"
)

func CreateApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		domain.DomainProvider,
		infrastructure.GatewayInfrastructure,
		interfaces.GatewayInterfaces,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
