package domain

import (
	"github.com/google/wire"

	"github.com/srcbook/websearch-mcp/internal/domain/search"
)

// DomainProvider provides all domain services
var DomainProvider = wire.NewSet(
	search.NewService,
)
