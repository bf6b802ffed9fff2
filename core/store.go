package core

import (
	"context"
	"strings"
	"sync"
)

// CredentialStore persists one Credential per installation id. Get returns
// (nil, nil) when no record exists and Delete of an unknown id is a no-op.
type CredentialStore interface {
	Get(ctx context.Context, installationID string) (*Credential, error)
	Put(ctx context.Context, installationID string, cred Credential) error
	Delete(ctx context.Context, installationID string) error
}

type MemoryCredentialStore struct {
	mu      sync.RWMutex
	records map[string]Credential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{records: map[string]Credential{}}
}

func (s *MemoryCredentialStore) Get(_ context.Context, installationID string) (*Credential, error) {
	if s == nil {
		return nil, Internal("core: credential store is nil", nil)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[strings.TrimSpace(installationID)]
	if !ok {
		return nil, nil
	}
	out := record.Clone()
	return &out, nil
}

func (s *MemoryCredentialStore) Put(_ context.Context, installationID string, cred Credential) error {
	if s == nil {
		return Internal("core: credential store is nil", nil)
	}
	installationID = strings.TrimSpace(installationID)
	if installationID == "" {
		return BadInput("core: installation id is required", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = map[string]Credential{}
	}
	s.records[installationID] = cred.Clone()
	return nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, installationID string) error {
	if s == nil {
		return Internal("core: credential store is nil", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, strings.TrimSpace(installationID))
	return nil
}

func (s *MemoryCredentialStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

var _ CredentialStore = (*MemoryCredentialStore)(nil)
