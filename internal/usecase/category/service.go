package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/pkg/validator"
)

// Input is the writable part of a category
type Input struct {
	Name        string     `json:"name" validate:"required,min=1,max=100"`
	Description string     `json:"description" validate:"max=500"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
	SortOrder   int        `json:"sort_order"`
}

// Service handles the category forest
type Service struct {
	repo   domain.CategoryRepository
	logger *logger.Logger
}

// NewService creates a new category service
func NewService(repo domain.CategoryRepository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
	}
}

// Create creates a category; admin only
func (s *Service) Create(ctx context.Context, principal domain.Principal, input Input) (*domain.Category, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	input.Name = strings.TrimSpace(input.Name)
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	if input.ParentID != nil {
		if _, err := s.repo.GetByID(ctx, *input.ParentID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown parent category %s", domain.ErrInvalidInput, *input.ParentID)
			}
			return nil, err
		}
	}

	category := &domain.Category{IsActive: true}
	apply(category, input)

	if err := s.repo.Create(ctx, category); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.Error("Failed to create category", err)
		}
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"category_id": category.ID,
		"name":        category.Name,
	}).Info("Category created successfully")

	return category, nil
}

// Get retrieves a category by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Category not found: %s", id)
		} else {
			s.logger.Error("Failed to get category", err)
		}
		return nil, err
	}
	return category, nil
}

// List returns active categories in display order
func (s *Service) List(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.repo.List(ctx, true)
	if err != nil {
		s.logger.Error("Failed to list categories", err)
		return nil, err
	}
	return categories, nil
}

// Tree returns the active categories as a forest of root nodes
func (s *Service) Tree(ctx context.Context) ([]*domain.CategoryNode, error) {
	categories, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(categories), nil
}

// Subcategories returns every active descendant of the category in breadth-first order
func (s *Service) Subcategories(ctx context.Context, id uuid.UUID) ([]*domain.Category, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	categories, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Descendants(categories, id), nil
}

// Hierarchy returns the path from the root down to the category
func (s *Service) Hierarchy(ctx context.Context, id uuid.UUID) ([]*domain.Category, error) {
	var path []*domain.Category
	visited := make(map[uuid.UUID]bool)

	next := &id
	for next != nil {
		if visited[*next] {
			s.logger.Warnf("Category cycle detected at %s", *next)
			break
		}
		visited[*next] = true

		category, err := s.Get(ctx, *next)
		if err != nil {
			return nil, err
		}
		path = append(path, category)
		next = category.ParentID
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// Update replaces the writable fields of a category; admin only.
// A category cannot become its own ancestor.
func (s *Service) Update(ctx context.Context, principal domain.Principal, id uuid.UUID, input Input) (*domain.Category, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	input.Name = strings.TrimSpace(input.Name)
	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, fmt.Errorf("%w: category cannot be its own parent", domain.ErrInvalidInput)
		}

		all, err := s.repo.List(ctx, false)
		if err != nil {
			return nil, err
		}
		if !contains(all, *input.ParentID) {
			return nil, fmt.Errorf("%w: unknown parent category %s", domain.ErrInvalidInput, *input.ParentID)
		}
		if contains(Descendants(all, id), *input.ParentID) {
			return nil, fmt.Errorf("%w: parent %s is a descendant of %s", domain.ErrInvalidInput, *input.ParentID, id)
		}
	}

	category := *existing
	apply(&category, input)

	if err := s.repo.Update(ctx, &category); err != nil {
		s.logger.Error("Failed to update category", err)
		return nil, err
	}

	return &category, nil
}

func apply(category *domain.Category, input Input) {
	category.Name = input.Name
	category.Slug = domain.Slugify(input.Name)
	category.Description = strings.TrimSpace(input.Description)
	category.ParentID = input.ParentID
	category.SortOrder = input.SortOrder
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
}

// BuildTree links categories to their parents. Categories whose parent is
// missing from the input become roots.
func BuildTree(categories []*domain.Category) []*domain.CategoryNode {
	nodes := make(map[uuid.UUID]*domain.CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &domain.CategoryNode{Category: c, Children: []*domain.CategoryNode{}}
	}

	roots := make([]*domain.CategoryNode, 0)
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok && *c.ParentID != c.ID {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// Descendants walks the children of root breadth-first, visiting each category once
func Descendants(categories []*domain.Category, root uuid.UUID) []*domain.Category {
	children := make(map[uuid.UUID][]*domain.Category)
	for _, c := range categories {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}

	var out []*domain.Category
	visited := map[uuid.UUID]bool{root: true}
	queue := []uuid.UUID{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, child := range children[current] {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			out = append(out, child)
			queue = append(queue, child.ID)
		}
	}
	return out
}

func contains(categories []*domain.Category, id uuid.UUID) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
