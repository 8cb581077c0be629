// Package sources links the source adapters into the binary. Each adapter
// registers its factory with the registry from init.
package sources

import (
	_ "github.com/agentstation/studiosync/internal/sources/stashbox"
	_ "github.com/agentstation/studiosync/internal/sources/tpdb"
)
