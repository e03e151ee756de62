package columns

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

type mockRepo struct {
	defs   []Definition
	values map[uuid.UUID]map[int64]string
}

func newMockRepo(defs ...Definition) *mockRepo {
	return &mockRepo{defs: defs, values: make(map[uuid.UUID]map[int64]string)}
}

func (m *mockRepo) ListDefinitions(ctx context.Context, activeOnly bool) ([]Definition, error) {
	var out []Definition
	for _, d := range m.defs {
		if activeOnly && !d.Active {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *mockRepo) InsertDefinition(ctx context.Context, d Definition) (Definition, error) {
	for _, existing := range m.defs {
		if existing.Code == d.Code {
			return Definition{}, &shared.ConflictError{Entity: "column definition", Key: d.Code}
		}
	}
	d.ID = int64(len(m.defs) + 1)
	m.defs = append(m.defs, d)
	return d, nil
}

func (m *mockRepo) UpsertValue(ctx context.Context, definitionID int64, figureID uuid.UUID, raw string) error {
	if m.values[figureID] == nil {
		m.values[figureID] = make(map[int64]string)
	}
	m.values[figureID][definitionID] = raw
	return nil
}

func (m *mockRepo) RawValuesForFigure(ctx context.Context, figureID uuid.UUID) (map[int64]string, error) {
	return m.values[figureID], nil
}

func (m *mockRepo) RawValuesForFigures(ctx context.Context, figureIDs []uuid.UUID) (map[uuid.UUID]map[int64]string, error) {
	out := make(map[uuid.UUID]map[int64]string)
	for _, id := range figureIDs {
		if v, ok := m.values[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func sourceDocument() Definition {
	return Definition{ID: 1, Code: "source_document", Name: "Document source", DataType: TypeText, Visible: true, Editable: true, Active: true}
}

func conteste() Definition {
	return Definition{ID: 2, Code: "conteste", Name: "Contesté", DataType: TypeBoolean, DefaultValue: "false", Visible: true, Editable: true, Active: true}
}

func TestDefineRejectsBadDefault(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Define(context.Background(), Definition{
		Code: "montant_conteste", Name: "Montant contesté", DataType: TypeNumber, DefaultValue: "beaucoup",
	})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "montant_conteste", validation.Field)
}

func TestDefineRejectsUnknownType(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Define(context.Background(), Definition{Code: "x", Name: "X", DataType: DataType("uuid")})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestDefineDuplicateCodeConflicts(t *testing.T) {
	svc := NewService(newMockRepo(sourceDocument()))

	_, err := svc.Define(context.Background(), Definition{Code: "source_document", Name: "Doublon", DataType: TypeText})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestSetValueValidatesUnderDeclaredType(t *testing.T) {
	repo := newMockRepo(conteste())
	svc := NewService(repo)
	figureID := uuid.New()

	require.NoError(t, svc.SetValue(context.Background(), "conteste", figureID, "true"))
	assert.Equal(t, "true", repo.values[figureID][2])

	err := svc.SetValue(context.Background(), "conteste", figureID, "peut-etre")
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestSetValueRejectsNonEditable(t *testing.T) {
	locked := sourceDocument()
	locked.Editable = false
	svc := NewService(newMockRepo(locked))

	err := svc.SetValue(context.Background(), "source_document", uuid.New(), "titre foncier")
	var state *shared.InvalidStateError
	require.ErrorAs(t, err, &state)
	assert.Contains(t, state.Reason, "source_document")
}

func TestSetValueUnknownDefinition(t *testing.T) {
	svc := NewService(newMockRepo())

	err := svc.SetValue(context.Background(), "inconnu", uuid.New(), "x")
	var notFound *shared.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestResolveValuesAppliesDefaults(t *testing.T) {
	snapshot := NewSnapshot([]Definition{sourceDocument(), conteste()})

	values, err := ResolveValues(snapshot, map[int64]string{1: "quittance 2024-117"})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "quittance 2024-117", values["source_document"].Text)
	assert.False(t, values["conteste"].Bool)
}

func TestResolveValuesSurfacesCorruptPayload(t *testing.T) {
	snapshot := NewSnapshot([]Definition{conteste()})

	_, err := ResolveValues(snapshot, map[int64]string{2: "oui"})
	var validation *shared.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestResolveValuesSkipsAbsentWithoutDefault(t *testing.T) {
	snapshot := NewSnapshot([]Definition{sourceDocument()})

	values, err := ResolveValues(snapshot, nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}
