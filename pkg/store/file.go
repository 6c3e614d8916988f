package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
)

//FileStore keeps "<video id>_labelled.json" files in a generated and a confirmed directory.
type FileStore struct {
	dirs map[Source]string
}

func NewFileStore(generatedDir, confirmedDir string) (*FileStore, error) {
	if generatedDir == "" || confirmedDir == "" {
		return nil, errors.New("NewFileStore: generated and confirmed directories are required")
	}

	for _, dir := range []string{generatedDir, confirmedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("NewFileStore: Could not create '%s', got '%v'", dir, err)
		}
	}
	return &FileStore{dirs: map[Source]string{Generated: generatedDir, Confirmed: confirmedDir}}, nil
}

func (s *FileStore) path(source Source, videoID string) string {
	return filepath.Join(s.dirs[source], videoID+"_labelled.json")
}

func (s *FileStore) Save(_ context.Context, source Source, labels *shot.VideoLabels) error {
	if err := validSource(source); err != nil {
		return err
	}
	if labels == nil || labels.VideoID == "" {
		return errors.New("Save: labels without video id")
	}

	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return writeFile(s.path(source, labels.VideoID), data)
}

//writeFile writes through a temp file in the same directory so readers never see a partial document
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".labels-*")
	if err != nil {
		return fmt.Errorf("writeFile: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writeFile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writeFile: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) Get(_ context.Context, videoID string) (*shot.VideoLabels, Source, error) {
	for _, source := range []Source{Confirmed, Generated} {
		labels, err := s.read(source, videoID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return labels, source, err
	}
	return nil, "", fmt.Errorf("%w: '%s'", ErrNotFound, videoID)
}

func (s *FileStore) read(source Source, videoID string) (*shot.VideoLabels, error) {
	data, err := os.ReadFile(s.path(source, videoID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read: %w", err)
	}

	var labels shot.VideoLabels
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("read: Could not parse %s labels of '%s', got '%v'", source, videoID, err)
	}
	return &labels, nil
}

func (s *FileStore) Confirm(_ context.Context, videoID string) error {
	data, err := os.ReadFile(s.path(Generated, videoID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: no generated labels for '%s'", ErrNotFound, videoID)
		}
		return fmt.Errorf("Confirm: %w", err)
	}
	return writeFile(s.path(Confirmed, videoID), data)
}

func (s *FileStore) Close() error {
	return nil
}
