package routes

import (
	"github.com/google/wire"
)

// RoutesProvider provides all gateway route dependencies
var RoutesProvider = wire.NewSet(
	NewSearchRoute,
	NewSessionRoute,
)
