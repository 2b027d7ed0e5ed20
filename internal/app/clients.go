package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/modehaus/lookbook-backend/internal/clients/azopenai"
	"github.com/modehaus/lookbook-backend/internal/clients/eventhub"
	redisclient "github.com/modehaus/lookbook-backend/internal/clients/redis"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
	"github.com/modehaus/lookbook-backend/internal/storage"
)

type Clients struct {
	Composer       azopenai.Composer
	Publisher      eventhub.Publisher
	ArtifactStore  storage.ArtifactStore
	GenerationLock redisclient.GenerationLock
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	tokens, err := azopenai.NewDefaultTokenProvider()
	if err != nil {
		return Clients{}, fmt.Errorf("init azure credential: %w", err)
	}
	composer, err := azopenai.NewClient(log, tokens)
	if err != nil {
		return Clients{}, fmt.Errorf("init image edit client: %w", err)
	}

	publisher, err := eventhub.NewPublisher(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init event publisher: %w", err)
	}

	var store storage.ArtifactStore
	switch cfg.ArtifactStore {
	case "gcs":
		s, err := storage.NewGCSStore(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init gcs artifact store: %w", err)
		}
		store = s
	default:
		s, err := storage.NewLocalStore(log, cfg.GeneratedDir)
		if err != nil {
			return Clients{}, fmt.Errorf("init local artifact store: %w", err)
		}
		store = s
	}

	var lock redisclient.GenerationLock
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		l, err := redisclient.NewGenerationLock(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis generation lock: %w", err)
		}
		lock = l
	}

	return Clients{
		Composer:       composer,
		Publisher:      publisher,
		ArtifactStore:  store,
		GenerationLock: lock,
	}, nil
}
