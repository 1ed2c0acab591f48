package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/storage"
)

var allowedContracts = map[string]bool{
	"ally.pdf":   true,
	"seller.pdf": true,
	"buyer.pdf":  true,
}

type ContractService struct {
	bucket storage.Bucket
}

func NewContractService(bucket storage.Bucket) *ContractService {
	return &ContractService{bucket: bucket}
}

// Fetch returns an allow-listed contract. Other names are refused before the
// bucket is touched.
func (s *ContractService) Fetch(ctx context.Context, filename string) (*storage.Object, error) {
	if !allowedContracts[filename] {
		return nil, fmt.Errorf("%w: contract %q is not available", ErrForbidden, filename)
	}
	obj, err := s.bucket.Get(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: contract %s", repository.ErrNotFound, filename)
		}
		return nil, fmt.Errorf("%w: storage: %v", ErrUpstream, err)
	}
	return obj, nil
}
