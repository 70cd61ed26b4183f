package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexivanou/georef/internal/model"
	"github.com/alexivanou/georef/internal/repository"
	"github.com/alexivanou/georef/internal/slug"
)

// ErrNotFound is returned when the row to change does not exist
var ErrNotFound = errors.New("not found")

const rebuildPageSize = 1000

// withTx runs fn with a service bound to one transaction.
func (s *Service) withTx(ctx context.Context, fn func(tx *Service) error) error {
	return s.repo.WithTx(ctx, func(r repository.Repository) error {
		tx := *s
		tx.repo = r
		return fn(&tx)
	})
}

// ancestors caches the divisions read while recomputing localities
type ancestors struct {
	repo   repository.Repository
	admin1 map[int64]*model.Admin1Code
	admin2 map[int64]*model.Admin2Code
}

func newAncestors(repo repository.Repository) *ancestors {
	return &ancestors{
		repo:   repo,
		admin1: make(map[int64]*model.Admin1Code),
		admin2: make(map[int64]*model.Admin2Code),
	}
}

func (a *ancestors) resolve(ctx context.Context, l *model.Locality) (*model.Admin1Code, *model.Admin2Code, error) {
	var admin1 *model.Admin1Code
	var admin2 *model.Admin2Code
	if l.Admin1ID != nil {
		id := *l.Admin1ID
		admin1 = a.admin1[id]
		if admin1 == nil {
			var err error
			if admin1, err = a.repo.GetAdmin1(ctx, id); err != nil {
				return nil, nil, err
			}
			if admin1 == nil {
				return nil, nil, &model.ConsistencyError{Entity: "locality", ID: l.GeonameID, Reason: fmt.Sprintf("admin1 %d does not exist", id)}
			}
			a.admin1[id] = admin1
		}
	}
	if l.Admin2ID != nil {
		id := *l.Admin2ID
		admin2 = a.admin2[id]
		if admin2 == nil {
			var err error
			if admin2, err = a.repo.GetAdmin2(ctx, id); err != nil {
				return nil, nil, err
			}
			if admin2 == nil {
				return nil, nil, &model.ConsistencyError{Entity: "locality", ID: l.GeonameID, Reason: fmt.Sprintf("admin2 %d does not exist", id)}
			}
			a.admin2[id] = admin2
		}
	}
	return admin1, admin2, nil
}

// refresh recomputes the derived names of l from its current ancestors and
// stores them when they changed.
func (a *ancestors) refresh(ctx context.Context, l *model.Locality) (bool, error) {
	admin1, admin2, err := a.resolve(ctx, l)
	if err != nil {
		return false, err
	}
	before := [3]string{l.LongName, l.Slug, l.NameFolded}
	if err := l.Attach(admin1, admin2); err != nil {
		return false, err
	}
	if before == [3]string{l.LongName, l.Slug, l.NameFolded} {
		return false, nil
	}
	if l.Enabled && l.LongName != before[0] {
		if err := checkLongName(ctx, a.repo, l); err != nil {
			return false, err
		}
	}
	return true, a.repo.UpdateLocalityDerived(ctx, l)
}

// checkLongName fails when another enabled locality of the country already
// uses the long name of l.
func checkLongName(ctx context.Context, repo repository.Repository, l *model.Locality) error {
	taken, err := repo.LongNameTaken(ctx, l.CountryCode, l.LongName, l.GeonameID)
	if err != nil {
		return err
	}
	if taken {
		return &model.ConsistencyError{
			Entity: "locality",
			ID:     l.GeonameID,
			Reason: fmt.Sprintf("long name %q is already used in %s", l.LongName, l.CountryCode),
		}
	}
	return nil
}

func (a *ancestors) refreshAll(ctx context.Context, localities []model.Locality) (int, error) {
	updated := 0
	for i := range localities {
		changed, err := a.refresh(ctx, &localities[i])
		if err != nil {
			return updated, err
		}
		if changed {
			updated++
		}
	}
	return updated, nil
}

// PropagateAdmin1Rename recomputes the long name and slug of every locality
// below the admin1. It returns the number of localities updated.
func (s *Service) PropagateAdmin1Rename(ctx context.Context, admin1ID int64) (int, error) {
	localities, err := s.repo.LocalitiesByAdmin1(ctx, admin1ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list localities of admin1 %d: %w", admin1ID, err)
	}
	return newAncestors(s.repo).refreshAll(ctx, localities)
}

// PropagateAdmin2Rename recomputes the long name and slug of every locality
// below the admin2. It returns the number of localities updated.
func (s *Service) PropagateAdmin2Rename(ctx context.Context, admin2ID int64) (int, error) {
	localities, err := s.repo.LocalitiesByAdmin2(ctx, admin2ID)
	if err != nil {
		return 0, fmt.Errorf("failed to list localities of admin2 %d: %w", admin2ID, err)
	}
	return newAncestors(s.repo).refreshAll(ctx, localities)
}

// RenameAdmin1 renames an admin1 and updates its localities in the same
// transaction. The rename is rolled back when it gives an enabled locality a
// long name already used in its country.
func (s *Service) RenameAdmin1(ctx context.Context, id int64, name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("%w: admin1 name is required", ErrInvalidRequest)
	}
	var updated int
	err := s.withTx(ctx, func(tx *Service) error {
		a, err := tx.repo.GetAdmin1(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("admin1 %d: %w", id, ErrNotFound)
		}
		a.Name = name
		if err := tx.repo.UpdateAdmin1(ctx, a); err != nil {
			return fmt.Errorf("failed to update admin1 %d: %w", id, err)
		}
		updated, err = tx.PropagateAdmin1Rename(ctx, id)
		return err
	})
	return updated, err
}

// RenameAdmin2 renames an admin2, recomputes its slug and updates its
// localities in the same transaction.
func (s *Service) RenameAdmin2(ctx context.Context, id int64, name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("%w: admin2 name is required", ErrInvalidRequest)
	}
	var updated int
	err := s.withTx(ctx, func(tx *Service) error {
		a, err := tx.repo.GetAdmin2(ctx, id)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("admin2 %d: %w", id, ErrNotFound)
		}
		a.Name = name
		a.Slug = slug.Admin2(name)
		if err := tx.repo.UpdateAdmin2(ctx, a); err != nil {
			return fmt.Errorf("failed to update admin2 %d: %w", id, err)
		}
		updated, err = tx.PropagateAdmin2Rename(ctx, id)
		return err
	})
	return updated, err
}

// SaveLocality recomputes the derived names of l from its ancestors and
// writes it. With strict set, an enabled locality whose long name is already
// used by another enabled locality of the country is rejected.
func (s *Service) SaveLocality(ctx context.Context, l *model.Locality, strict bool) error {
	return s.withTx(ctx, func(tx *Service) error {
		existing, err := tx.repo.GetLocality(ctx, l.GeonameID, model.ScopeIncludingDisabled)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("locality %d: %w", l.GeonameID, ErrNotFound)
		}

		admin1, admin2, err := newAncestors(tx.repo).resolve(ctx, l)
		if err != nil {
			return err
		}
		if err := l.Attach(admin1, admin2); err != nil {
			return err
		}

		if strict && l.Enabled {
			if err := checkLongName(ctx, tx.repo, l); err != nil {
				return err
			}
		}
		return tx.repo.UpdateLocality(ctx, l)
	})
}

// Rebuild recomputes every admin2 slug and every locality long name and slug
// from the current hierarchy, and strips spaces from the postcodes of the
// spaceless countries.
func (s *Service) Rebuild(ctx context.Context) (*model.RebuildResult, error) {
	result := &model.RebuildResult{}
	err := s.withTx(ctx, func(tx *Service) error {
		admins, err := tx.repo.ListAllAdmin2(ctx)
		if err != nil {
			return fmt.Errorf("failed to list admin2 codes: %w", err)
		}
		for i := range admins {
			a := &admins[i]
			if handle := slug.Admin2(a.Name); handle != a.Slug {
				a.Slug = handle
				if err := tx.repo.UpdateAdmin2(ctx, a); err != nil {
					return fmt.Errorf("failed to update admin2 %d: %w", a.GeonameID, err)
				}
				result.Admin2++
			}
		}

		anc := newAncestors(tx.repo)
		var after int64
		for {
			page, err := tx.repo.LocalitiesAfter(ctx, after, rebuildPageSize)
			if err != nil {
				return fmt.Errorf("failed to page localities: %w", err)
			}
			if len(page) == 0 {
				break
			}
			n, err := anc.refreshAll(ctx, page)
			if err != nil {
				return err
			}
			result.Localities += n
			after = page[len(page)-1].GeonameID
		}

		result.Postcodes, err = tx.repo.RemovePostcodeSpaces(ctx, tx.spaceless)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
