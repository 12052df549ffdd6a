package parameters

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Load merges the parameter files of a robot, in increasing priority:
// default, body.<bodyID>, head.<headID>. Only the default file is required.
func Load(dir, bodyID, headID string) (*Tree, error) {
	path, ok := findDocument(dir, "default")
	if !ok {
		return nil, errors.WrapFatal(fmt.Errorf("%w: default parameters in %s", errors.ErrConfigNotFound, dir),
			"parameters", "Load", "locate default parameters")
	}
	doc, err := config.ReadDocument(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "parameters", "Load", "read "+path)
	}

	overlays := []string{}
	if bodyID != "" {
		overlays = append(overlays, "body."+bodyID)
	}
	if headID != "" {
		overlays = append(overlays, "head."+headID)
	}

	for _, name := range overlays {
		path, ok := findDocument(dir, name)
		if !ok {
			continue
		}
		overlay, err := config.ReadDocument(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "parameters", "Load", "read "+path)
		}
		doc = config.DeepMerge(doc, overlay)
	}

	return NewTree(doc)
}

func findDocument(dir, name string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}
