package columns

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Define registers a new dynamic column. Duplicate codes conflict.
func (s *Service) Define(ctx context.Context, d Definition) (Definition, error) {
	if strings.TrimSpace(d.Code) == "" {
		return Definition{}, shared.Validationf("code", "is required")
	}
	if !d.DataType.Valid() {
		return Definition{}, shared.Validationf("data_type", "unknown data type %q", d.DataType)
	}
	if d.DefaultValue != "" {
		if _, err := ParseValue(d.Code, d.DataType, d.DefaultValue); err != nil {
			return Definition{}, err
		}
	}
	return s.repo.InsertDefinition(ctx, d)
}

// LoadSnapshot reads the active definitions once; the caller passes the
// snapshot through the whole request.
func (s *Service) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	defs, err := s.repo.ListDefinitions(ctx, true)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(defs), nil
}

// SetValue validates the payload under the definition's declared type, then
// upserts by (definition, figure).
func (s *Service) SetValue(ctx context.Context, definitionCode string, figureID uuid.UUID, raw string) error {
	snapshot, err := s.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	def, ok := snapshot.Lookup(definitionCode)
	if !ok {
		return &shared.NotFoundError{Entity: "column definition", ID: definitionCode}
	}
	if !def.Editable {
		return &shared.InvalidStateError{Reason: "column " + definitionCode + " is not editable"}
	}
	if _, err := ParseValue(def.Code, def.DataType, raw); err != nil {
		return err
	}
	return s.repo.UpsertValue(ctx, def.ID, figureID, raw)
}

// ValuesForFigure resolves the typed values for one figure; definitions
// without a stored value fall back to their declared default.
func (s *Service) ValuesForFigure(ctx context.Context, snapshot *Snapshot, figureID uuid.UUID) (map[string]Value, error) {
	raw, err := s.repo.RawValuesForFigure(ctx, figureID)
	if err != nil {
		return nil, err
	}
	return ResolveValues(snapshot, raw)
}

// RawValuesForFigures batch-loads the stored payloads for many figures in
// one round trip.
func (s *Service) RawValuesForFigures(ctx context.Context, figureIDs []uuid.UUID) (map[uuid.UUID]map[int64]string, error) {
	return s.repo.RawValuesForFigures(ctx, figureIDs)
}

// ResolveValues interprets stored payloads under each definition's type,
// substituting the default for absent entries. Stored payloads that no
// longer parse are surfaced, not skipped.
func ResolveValues(snapshot *Snapshot, raw map[int64]string) (map[string]Value, error) {
	out := make(map[string]Value, len(snapshot.Definitions()))
	for _, def := range snapshot.Definitions() {
		payload, ok := raw[def.ID]
		if !ok {
			if def.DefaultValue == "" {
				continue
			}
			payload = def.DefaultValue
		}
		v, err := ParseValue(def.Code, def.DataType, payload)
		if err != nil {
			return nil, err
		}
		out[def.Code] = v
	}
	return out, nil
}
