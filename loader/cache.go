package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"git.fiblab.net/sim/raptor/router"
	"go.mongodb.org/mongo-driver/mongo"
)

// LoadWithCache returns the cached network of a mongo collection if present,
// otherwise downloads it and writes the cache. An empty cacheDir disables the cache.
func LoadWithCache(cacheDir string, p *Path, download func() (*router.NetworkInput, error)) (*router.NetworkInput, error) {
	if cacheDir == "" || p.IsFile() {
		return download()
	}
	cachePath := p.CachePath(cacheDir)
	in, err := LoadFile(cachePath, GTFSOptions{})
	if err == nil {
		log.Infof("load %s from cache %s", p, cachePath)
		return in, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.Warnf("ignore broken cache %s: %v", cachePath, err)
	}
	in, err = download()
	if err != nil {
		return nil, err
	}
	if err := SaveFile(cachePath, in); err != nil {
		log.Warnf("failed to write cache %s: %v", cachePath, err)
	}
	return in, nil
}

// Source describes where a network comes from.
type Source struct {
	Path     *Path
	MongoURI string
	CacheDir string
	GTFS     GTFSOptions
}

// Load reads the network of src. The mongo client is created only when the
// collection is not cached, and disconnected before returning.
func Load(ctx context.Context, src Source) (*router.NetworkInput, error) {
	if src.Path == nil {
		return nil, errors.New("no network path")
	}
	if src.Path.IsFile() {
		log.Infof("load network from file %s", src.Path.File)
		return LoadFile(src.Path.File, src.GTFS)
	}
	return LoadWithCache(src.CacheDir, src.Path, func() (*router.NetworkInput, error) {
		if src.MongoURI == "" {
			return nil, fmt.Errorf("mongo uri is required to load %s", src.Path)
		}
		client, err := NewClient(ctx, src.MongoURI)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warnf("failed to disconnect mongo: %v", err)
			}
		}()
		return LoadMongo(ctx, collection(client, src.Path))
	})
}

func collection(client *mongo.Client, p *Path) *mongo.Collection {
	return client.Database(p.DB).Collection(p.Coll)
}

// Export writes the network into the mongo collection named by p.
func Export(ctx context.Context, mongoURI string, p *Path, in *router.NetworkInput) error {
	if p == nil || p.IsFile() {
		if p == nil {
			return errors.New("no export path")
		}
		return SaveFile(p.File, in)
	}
	client, err := NewClient(ctx, mongoURI)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())
	return SaveMongo(ctx, collection(client, p), in)
}
