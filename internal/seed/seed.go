// Package seed loads a catalog of schemes into the store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/satyamkes/JanSahyog/internal/database"
	"github.com/satyamkes/JanSahyog/internal/models"
)

//go:embed schemes.json
var defaultCatalog []byte

// Creator adds one scheme to the catalog.
type Creator interface {
	CreateScheme(ctx context.Context, req models.CreateSchemeRequest) (models.Scheme, error)
}

// Result counts what a seeding run did.
type Result struct {
	Created int
	Skipped int
}

// DefaultCatalog returns the bundled sample schemes.
func DefaultCatalog() ([]models.CreateSchemeRequest, error) {
	var reqs []models.CreateSchemeRequest
	if err := json.Unmarshal(defaultCatalog, &reqs); err != nil {
		return nil, fmt.Errorf("failed to decode bundled catalog: %w", err)
	}
	return reqs, nil
}

// Decode reads a JSON array of schemes.
func Decode(r io.Reader) ([]models.CreateSchemeRequest, error) {
	var reqs []models.CreateSchemeRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&reqs); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return reqs, nil
}

// Run creates every scheme in reqs. Schemes whose name already exists are
// skipped; any other failure stops the run.
func Run(ctx context.Context, c Creator, reqs []models.CreateSchemeRequest, logger *zap.Logger) (Result, error) {
	var res Result
	for i, req := range reqs {
		scheme, err := c.CreateScheme(ctx, req)
		if errors.Is(err, database.ErrDuplicateName) {
			logger.Info("scheme already present", zap.String("name", req.Name))
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("scheme %d (%q): %w", i, req.Name, err)
		}
		logger.Info("scheme created", zap.String("id", scheme.ID), zap.String("name", scheme.Name))
		res.Created++
	}
	return res, nil
}
