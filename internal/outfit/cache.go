package outfit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/modehaus/lookbook-backend/internal/catalog"
	"github.com/modehaus/lookbook-backend/internal/clients/azopenai"
	redisclient "github.com/modehaus/lookbook-backend/internal/clients/redis"
	pkgerrors "github.com/modehaus/lookbook-backend/internal/pkg/errors"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
	"github.com/modehaus/lookbook-backend/internal/storage"
)

// ArtifactKey is the storage key for a combination's generated look image.
func ArtifactKey(combinationID string) string {
	return "look_" + combinationID + ".jpeg"
}

type GenerateResult struct {
	CombinationID string
	ArtifactKey   string
	Cached        bool
	Products      []catalog.Product
}

// Service is the combination cache: it maps a set of selected product ids to
// a generated look artifact, generating through the composition client on a
// miss. Artifact existence in the store is the only cache index.
type Service struct {
	log      *logger.Logger
	catalog  *catalog.Index
	store    storage.ArtifactStore
	composer azopenai.Composer
	lock     redisclient.GenerationLock

	group singleflight.Group
}

// NewService wires the cache. lock may be nil; cross-process exclusion is
// then skipped and only in-process singleflight applies.
func NewService(
	log *logger.Logger,
	cat *catalog.Index,
	store storage.ArtifactStore,
	composer azopenai.Composer,
	lock redisclient.GenerationLock,
) *Service {
	return &Service{
		log:      log.With("service", "OutfitService"),
		catalog:  cat,
		store:    store,
		composer: composer,
		lock:     lock,
	}
}

type resolvedItem struct {
	product  catalog.Product
	category string
	path     string
}

// GetOrGenerate returns the look artifact for the given item set, generating
// it at most once per combination id. Concurrent requests for the same
// not-yet-cached combination share a single generation.
func (s *Service) GetOrGenerate(ctx context.Context, itemIDs []string) (GenerateResult, error) {
	if len(itemIDs) == 0 {
		return GenerateResult{}, fmt.Errorf("no items selected: %w", pkgerrors.ErrInvalidArgument)
	}

	combinationID := CombinationID(itemIDs)
	key := ArtifactKey(combinationID)

	resolved, err := s.resolveItems(itemIDs)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("combination %s: %w", combinationID, err)
	}
	products := make([]catalog.Product, 0, len(resolved))
	for _, r := range resolved {
		products = append(products, r.product)
	}

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("combination %s: %w", combinationID, err)
	}
	if exists {
		s.log.Debug("Look served from cache", "combination_id", combinationID)
		return GenerateResult{
			CombinationID: combinationID,
			ArtifactKey:   key,
			Cached:        true,
			Products:      products,
		}, nil
	}

	type genOutcome struct {
		foundExisting bool
	}
	v, err, shared := s.group.Do(combinationID, func() (interface{}, error) {
		found, genErr := s.generate(ctx, combinationID, key, resolved)
		return genOutcome{foundExisting: found}, genErr
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("combination %s (items %s): %w", combinationID, strings.Join(itemIDs, ","), err)
	}

	outcome := v.(genOutcome)
	return GenerateResult{
		CombinationID: combinationID,
		ArtifactKey:   key,
		Cached:        shared || outcome.foundExisting,
		Products:      products,
	}, nil
}

// resolveItems maps item ids to product records and backing image files.
// Unknown ids and products without a readable image are skipped; a
// combination where nothing resolves cannot be generated.
func (s *Service) resolveItems(itemIDs []string) ([]resolvedItem, error) {
	resolved := make([]resolvedItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		p, cat, err := s.catalog.Lookup(id)
		if err != nil {
			s.log.Warn("Selected item not in catalog, skipping", "item_id", id)
			continue
		}
		path := s.catalog.ImagePath(cat, p)
		if _, err := os.Stat(path); err != nil {
			s.log.Warn("Product image missing, skipping", "item_id", id, "path", path)
			continue
		}
		resolved = append(resolved, resolvedItem{product: p, category: cat, path: path})
	}
	if len(resolved) == 0 {
		return nil, fmt.Errorf("no resolvable images for items: %w", pkgerrors.ErrNotFound)
	}
	return resolved, nil
}

// generate runs the composition call and persists the artifact. The returned
// bool reports whether another writer got there first.
func (s *Service) generate(ctx context.Context, combinationID, key string, resolved []resolvedItem) (bool, error) {
	if s.lock != nil {
		acquired, err := s.acquireCrossProcess(ctx, combinationID, key)
		if err != nil {
			return false, err
		}
		if !acquired {
			// Another process generated and stored the artifact while we waited.
			return true, nil
		}
		defer func() {
			if err := s.lock.Release(context.Background(), combinationID); err != nil {
				s.log.Warn("Generation lock release failed", "combination_id", combinationID, "error", err)
			}
		}()
	}

	// Double-check under the lock: a racing process may have finished between
	// the caller's existence check and now.
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	images := make([]azopenai.SourceImage, 0, len(resolved))
	filenames := make([]string, 0, len(resolved))
	for _, r := range resolved {
		data, err := os.ReadFile(r.path)
		if err != nil {
			return false, fmt.Errorf("read product image %s: %w", r.path, err)
		}
		images = append(images, azopenai.SourceImage{
			Filename: filepath.Base(r.path),
			Bytes:    data,
			MimeType: mimeTypeForPath(r.path),
		})
		filenames = append(filenames, r.path)
	}

	instruction := azopenai.BuildInstruction(filenames)
	s.log.Info("Generating look", "combination_id", combinationID, "images", len(images))

	generated, err := s.composer.Compose(ctx, images, instruction)
	if err != nil {
		return false, err
	}
	if err := s.store.Put(ctx, key, generated); err != nil {
		return false, err
	}
	s.log.Info("Look generated and stored", "combination_id", combinationID, "artifact", key)
	return false, nil
}

// acquireCrossProcess claims the redis lock, polling while another process
// generates. Returns false when the artifact appeared while waiting.
func (s *Service) acquireCrossProcess(ctx context.Context, combinationID, key string) (bool, error) {
	for {
		ok, err := s.lock.TryAcquire(ctx, combinationID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(2 * time.Second):
		}

		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}
}

func mimeTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
