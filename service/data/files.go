package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

type filesDBService struct {
	CfgSvc config.IService
	mu     sync.Mutex
}

// NewFilesDB stores every entity kind as a JSON array in its own file under
// the data folder.
func NewFilesDB(cfgSvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgSvc,
	}
}

func (svc *filesDBService) NewAnalysis(analysis model.VideoAnalysis) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return newEntity(analysis, "analyses", svc.CfgSvc)
}

func (svc *filesDBService) RetrieveAnalyses() ([]model.VideoAnalysis, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return retrieveEntities[model.VideoAnalysis]("analyses", svc.CfgSvc)
}

func (svc *filesDBService) RetrieveAnalysisByHash(hash string) (model.VideoAnalysis, error) {
	analyses, err := svc.RetrieveAnalyses()
	if err != nil {
		return model.VideoAnalysis{}, err
	}

	for i := len(analyses) - 1; i >= 0; i-- {
		if analyses[i].Hash == hash {
			return analyses[i], nil
		}
	}

	return model.VideoAnalysis{}, fmt.Errorf("analysis for hash %s: %w", hash, ErrNotFound)
}

func (svc *filesDBService) NewError(err interface{}) error {
	record := toErrorRecord(err)
	record.Timestamp = time.Now().Unix()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	return newEntity(record, "errors", svc.CfgSvc)
}

func (svc *filesDBService) NewWatcherStats(stats model.WatcherStats) error {
	stats.Timestamp = time.Now().Unix()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	return newEntity(stats, "watcher-stats", svc.CfgSvc)
}

func (svc *filesDBService) NewWorkerStats(stats model.WorkerStats) error {
	stats.Timestamp = time.Now().Unix()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	return newEntity(stats, "worker-stats", svc.CfgSvc)
}

func (svc *filesDBService) NewAlerterStats(stats model.AlerterStats) error {
	stats.Timestamp = time.Now().Unix()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	return newEntity(stats, "alerter-stats", svc.CfgSvc)
}

func (svc *filesDBService) Close() error {
	return nil
}

func entityFile(filename string, cfgsvc config.IService) string {
	return filepath.Join(cfgsvc.GetDataFolder(), filename+".json")
}

func newEntity[T any](entity T, filename string, cfgsvc config.IService) error {
	entities, err := retrieveEntities[T](filename, cfgsvc)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgsvc.GetDataFolder(), 0755); err != nil {
		return err
	}

	// Write to a temp file first so a crash never leaves a truncated array
	output := entityFile(filename, cfgsvc)
	tmp := output + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, output)
}

func retrieveEntities[T any](filename string, cfgsvc config.IService) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(entityFile(filename, cfgsvc))
	if errors.Is(err, os.ErrNotExist) {
		// WARNING: File not found, return empty slice
		return entities, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, err
	}

	return entities, nil
}
