package actions

import (
	"github.com/go-logr/logr"

	"github.com/ChamsBouzaiene/runloop/internal/engine"
)

// Set selects which action groups a registry carries.
type Set struct {
	Filesystem bool
	Execution  bool
	Reasoning  bool
}

// DefaultSet enables everything.
func DefaultSet() Set {
	return Set{Filesystem: true, Execution: true, Reasoning: true}
}

// BuildRegistry assembles a registry of the selected action groups, all
// confined to root.
func BuildRegistry(root string, set Set, log logr.Logger) (engine.Registry, error) {
	var fs FileSystem = OSFileSystem{}
	var acts []engine.Action

	if set.Filesystem {
		acts = append(acts,
			NewReadFile(fs, root),
			NewWriteFile(fs, root),
			NewListFiles(fs, root),
		)
	}
	if set.Execution {
		acts = append(acts, NewRunCommand(root))
	}
	if set.Reasoning {
		acts = append(acts, NewThink(log))
	}

	return engine.NewRegistry(acts...)
}
