package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.fiblab.net/sim/raptor/router"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"
)

var log = logrus.WithField("module", "loader")

// LoadFile reads a network from a local file chosen by extension: .json and
// .yaml/.yml hold a router.NetworkInput, .bson is the cache format and .zip
// is a GTFS static feed.
func LoadFile(path string, opts GTFSOptions) (*router.NetworkInput, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	in := new(router.NetworkInput)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(b, in)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, in)
	case ".bson":
		err = bson.Unmarshal(b, in)
	case ".zip":
		return ParseGTFS(b, opts)
	default:
		return nil, fmt.Errorf("unsupported network file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return in, nil
}

// SaveFile writes a network in the format chosen by extension.
func SaveFile(path string, in *router.NetworkInput) error {
	var (
		b   []byte
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		b, err = json.MarshalIndent(in, "", "  ")
	case ".yaml", ".yml":
		b, err = yaml.Marshal(in)
	case ".bson":
		b, err = bson.Marshal(in)
	default:
		return fmt.Errorf("unsupported network file extension %q", ext)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
