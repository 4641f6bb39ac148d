package core

import (
	"sync"

	"github.com/google/uuid"
)

// Identifiers tie engine-owned resources (render items, geometries, materials)
// to a stable handle for logging and registry lookups.

var identifierMutex sync.Mutex
var owners map[uuid.UUID]interface{}

func IdentifierAcquireNewID(owner interface{}) uuid.UUID {
	identifierMutex.Lock()
	defer identifierMutex.Unlock()

	if owners == nil {
		owners = make(map[uuid.UUID]interface{})
	}
	id := uuid.New()
	owners[id] = owner
	return id
}

func IdentifierReleaseID(id uuid.UUID) {
	identifierMutex.Lock()
	defer identifierMutex.Unlock()

	delete(owners, id)
}
