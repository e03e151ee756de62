package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/tahiry-mg/tahiry/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveSubtree returns all nodes of one movement kind in rendering order:
// pre-order traversal, siblings by their configured display order.
func (s *Service) ResolveSubtree(ctx context.Context, kind Kind, activeOnly bool) ([]AccountNode, error) {
	if !kind.Valid() {
		return nil, shared.Validationf("kind", "unknown movement kind %q", kind)
	}
	nodes, err := s.repo.ListByKind(ctx, kind, activeOnly)
	if err != nil {
		return nil, err
	}
	arena, err := BuildArena(nodes)
	if err != nil {
		return nil, err
	}
	ordered := arena.PreOrder()
	if len(ordered) == 0 {
		return nil, &shared.NotFoundError{Entity: "account subtree", ID: string(kind)}
	}
	out := make([]AccountNode, len(ordered))
	for i, n := range ordered {
		out[i] = *n
	}
	return out, nil
}

// Subtree builds the validated arena for one kind, used by the aggregation
// engine.
func (s *Service) Subtree(ctx context.Context, kind Kind, activeOnly bool) (*Arena, error) {
	nodes, err := s.repo.ListByKind(ctx, kind, activeOnly)
	if err != nil {
		return nil, err
	}
	return BuildArena(nodes)
}

// InsertNode validates hierarchy rules before persisting: level must follow
// the parent (or be 1 for roots), kinds must match, depth is capped.
func (s *Service) InsertNode(ctx context.Context, parentCode string, node AccountNode) (AccountNode, error) {
	if strings.TrimSpace(node.Code) == "" {
		return AccountNode{}, shared.Validationf("code", "is required")
	}
	if strings.TrimSpace(node.Name) == "" {
		return AccountNode{}, shared.Validationf("name", "is required")
	}
	if !node.Kind.Valid() {
		return AccountNode{}, shared.Validationf("kind", "unknown movement kind %q", node.Kind)
	}
	if parentCode == "" {
		if node.Level != 1 {
			return AccountNode{}, shared.Validationf("level", "must be 1 for a root node, got %d", node.Level)
		}
		node.ParentCode = ""
		return s.repo.Insert(ctx, node)
	}
	parent, err := s.repo.GetByCode(ctx, parentCode)
	if err != nil {
		return AccountNode{}, err
	}
	if parent.Kind != node.Kind {
		return AccountNode{}, shared.Validationf("kind", "parent %s is %s, node is %s", parent.Code, parent.Kind, node.Kind)
	}
	if node.Level != parent.Level+1 {
		return AccountNode{}, shared.Validationf("level", "must be %d under parent %s, got %d", parent.Level+1, parent.Code, node.Level)
	}
	if node.Level > MaxDepth {
		return AccountNode{}, shared.Validationf("level", "exceeds maximum depth %d", MaxDepth)
	}
	node.ParentCode = parent.Code
	node.Section = parent.Section
	return s.repo.Insert(ctx, node)
}

// DeactivateNode soft-deletes a node. Children are left untouched; an
// active child of an inactive parent surfaces as a DataIntegrityError at
// aggregation time rather than silently dropping the subtree.
func (s *Service) DeactivateNode(ctx context.Context, code string) error {
	return s.repo.SetActive(ctx, code, false)
}

// Categories returns the coarse table sections in display order.
func (s *Service) Categories(ctx context.Context) ([]CategoryGroup, error) {
	return s.repo.ListCategories(ctx)
}

// CheckIntegrity validates every kind's subtree and returns the collected
// findings instead of stopping at the first.
func (s *Service) CheckIntegrity(ctx context.Context) ([]string, error) {
	nodes, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byKind := make(map[Kind][]AccountNode)
	for _, n := range nodes {
		byKind[n.Kind] = append(byKind[n.Kind], n)
	}
	var findings []string
	for _, kind := range []Kind{KindRecette, KindDepense, KindSolde} {
		if _, err := BuildArena(byKind[kind]); err != nil {
			var integrity *shared.DataIntegrityError
			if errors.As(err, &integrity) {
				findings = append(findings, integrity.Reason)
				continue
			}
			return nil, err
		}
	}
	return findings, nil
}
