package services

import (
	"context"
	"sort"
	"strings"

	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// MemberQuery filters the member directory. The Include flags lift the
// public visibility rule and are only honoured for administrators.
type MemberQuery struct {
	Organisation       string `form:"organisation" json:"organisation"`
	Location           string `form:"location" json:"location"`
	Sector             string `form:"sector" json:"sector"`
	JobLevel           string `form:"job_level" json:"job_level"`
	Search             string `form:"q" json:"q"`
	Page               int    `form:"page" json:"page"`
	PageSize           int    `form:"page_size" json:"page_size"`
	IncludeAllStatuses bool   `form:"-" json:"-"`
	IncludeHidden      bool   `form:"-" json:"-"`
}

func (q MemberQuery) admin() bool {
	return q.IncludeAllStatuses || q.IncludeHidden
}

type MemberFacets struct {
	Organisations []string `json:"organisations"`
	Locations     []string `json:"locations"`
	Sectors       []string `json:"sectors"`
	JobLevels     []string `json:"job_levels"`
}

type MemberPage struct {
	Items      []models.MemberCard `json:"items"`
	Pagination Pagination          `json:"pagination"`
	Facets     MemberFacets        `json:"facets"`
	Fallback   bool                `json:"fallback"`
}

// memberCondition is one directory filter in both of its forms: a SQL
// clause for the store and a predicate for in-memory rows.
type memberCondition struct {
	clause string
	args   []any
	match  func(p *models.Profile) bool
}

// visibilityConditions is the hard directory rule: approved and listed,
// unless the caller asked for everything.
func visibilityConditions(q MemberQuery) []memberCondition {
	var conds []memberCondition
	if !q.IncludeAllStatuses {
		conds = append(conds, memberCondition{
			clause: "status = ?",
			args:   []any{models.ProfileStatusApproved},
			match:  func(p *models.Profile) bool { return p.Status == models.ProfileStatusApproved },
		})
	}
	if !q.IncludeHidden {
		conds = append(conds, memberCondition{
			clause: "show_in_directory = ?",
			args:   []any{true},
			match:  func(p *models.Profile) bool { return p.ShowInDirectory },
		})
	}
	return conds
}

func memberConditions(q MemberQuery) []memberCondition {
	conds := visibilityConditions(q)

	equal := func(column, value string, field func(p *models.Profile) string) {
		if !active(value) {
			return
		}
		conds = append(conds, memberCondition{
			clause: column + " = ?",
			args:   []any{value},
			match:  func(p *models.Profile) bool { return field(p) == value },
		})
	}
	equal("organisation", q.Organisation, func(p *models.Profile) string { return p.Organisation })
	equal("location", q.Location, func(p *models.Profile) string { return p.Location })
	equal("sector", q.Sector, func(p *models.Profile) string { return p.Sector })
	equal("job_level", q.JobLevel, func(p *models.Profile) string { return p.JobLevel })

	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		pattern := "%" + term + "%"
		conds = append(conds, memberCondition{
			clause: "(LOWER(full_name) LIKE ? OR LOWER(organisation) LIKE ?)",
			args:   []any{pattern, pattern},
			match: func(p *models.Profile) bool {
				return strings.Contains(strings.ToLower(p.FullName), term) ||
					strings.Contains(strings.ToLower(p.Organisation), term)
			},
		})
	}
	return conds
}

func applyConditions(tx *gorm.DB, conds []memberCondition) *gorm.DB {
	for _, c := range conds {
		tx = tx.Where(c.clause, c.args...)
	}
	return tx
}

func matchesAll(p *models.Profile, conds []memberCondition) bool {
	for _, c := range conds {
		if !c.match(p) {
			return false
		}
	}
	return true
}

type DirectoryService struct {
	backend *database.Backend
	config  *config.Config
}

func NewDirectoryService(backend *database.Backend, cfg *config.Config) *DirectoryService {
	return &DirectoryService{backend: backend, config: cfg}
}

// db picks the service handle for administrative listings so hidden and
// unapproved profiles are reachable.
func (s *DirectoryService) db(admin bool) *gorm.DB {
	if admin {
		if db := s.backend.Service(); db != nil {
			return db
		}
	}
	return s.backend.Reader()
}

// GetMembers returns one page of the directory, ordered by name, with
// facet values drawn from every visible profile.
func (s *DirectoryService) GetMembers(ctx context.Context, q MemberQuery) MemberPage {
	db := s.db(q.admin())
	if db == nil {
		return s.fallbackMembers(q)
	}
	db = db.WithContext(ctx)
	conds := memberConditions(q)

	var total int64
	if err := applyConditions(db.Model(&models.Profile{}), conds).Count(&total).Error; err != nil {
		logger.Backend("members.count", err)
		return s.fallbackMembers(q)
	}
	p := Paginate(q.Page, pageSize(q.PageSize, s.config.DefaultPageSize), int(total), s.config.MaxPageSize)

	var rows []models.Profile
	var facets MemberFacets
	visible := visibilityConditions(q)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return applyConditions(db.WithContext(gctx).Model(&models.Profile{}), conds).
			Order("full_name ASC").Order("id ASC").
			Offset(p.Offset()).Limit(p.PageSize).
			Find(&rows).Error
	})
	for column, dst := range facetColumns(&facets) {
		g.Go(func() error {
			return applyConditions(db.WithContext(gctx).Model(&models.Profile{}), visible).
				Where(column+" <> ''").
				Distinct(column).Order(column+" ASC").
				Pluck(column, dst).Error
		})
	}
	if err := g.Wait(); err != nil {
		logger.Backend("members.list", err)
		return s.fallbackMembers(q)
	}

	return MemberPage{
		Items:      toCards(rows, q.admin()),
		Pagination: p,
		Facets:     facets.orEmpty(),
	}
}

func facetColumns(f *MemberFacets) map[string]*[]string {
	return map[string]*[]string{
		"organisation": &f.Organisations,
		"location":     &f.Locations,
		"sector":       &f.Sectors,
		"job_level":    &f.JobLevels,
	}
}

func (f MemberFacets) orEmpty() MemberFacets {
	for _, list := range []*[]string{&f.Organisations, &f.Locations, &f.Sectors, &f.JobLevels} {
		if *list == nil {
			*list = []string{}
		}
	}
	return f
}

// fallbackMembers filters the built-in roster with the same conditions a
// live query would use.
func (s *DirectoryService) fallbackMembers(q MemberQuery) MemberPage {
	conds := memberConditions(q)
	visible := visibilityConditions(q)

	var rows []models.Profile
	organisations := map[string]bool{}
	locations := map[string]bool{}
	sectors := map[string]bool{}
	jobLevels := map[string]bool{}
	for _, profile := range database.FallbackProfiles() {
		if !matchesAll(&profile, visible) {
			continue
		}
		organisations[profile.Organisation] = true
		locations[profile.Location] = true
		sectors[profile.Sector] = true
		jobLevels[profile.JobLevel] = true
		if matchesAll(&profile, conds) {
			rows = append(rows, profile)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].FullName < rows[j].FullName })

	p := Paginate(q.Page, pageSize(q.PageSize, s.config.DefaultPageSize), len(rows), s.config.MaxPageSize)
	start, end := p.Slice()
	return MemberPage{
		Items:      toCards(rows[start:end], q.admin()),
		Pagination: p,
		Facets: MemberFacets{
			Organisations: sortedKeys(organisations),
			Locations:     sortedKeys(locations),
			Sectors:       sortedKeys(sectors),
			JobLevels:     sortedKeys(jobLevels),
		},
		Fallback: true,
	}
}

// GetMemberByID returns one directory entry. Hidden or unapproved
// profiles are only returned when includeHidden is set.
func (s *DirectoryService) GetMemberByID(ctx context.Context, id uuid.UUID, includeHidden bool) (*models.MemberCard, bool) {
	q := MemberQuery{IncludeAllStatuses: includeHidden, IncludeHidden: includeHidden}
	conds := visibilityConditions(q)

	db := s.db(includeHidden)
	if db != nil {
		var profile models.Profile
		err := applyConditions(db.WithContext(ctx), conds).First(&profile, "id = ?", id).Error
		if err == nil {
			card := profile.ToCard(includeHidden)
			return &card, true
		}
		if database.IsNotFound(err) {
			return nil, false
		}
		logger.Backend("members.get", err)
	}

	for _, profile := range database.FallbackProfiles() {
		if profile.ID == id && matchesAll(&profile, conds) {
			card := profile.ToCard(includeHidden)
			return &card, true
		}
	}
	return nil, false
}

func toCards(rows []models.Profile, admin bool) []models.MemberCard {
	cards := make([]models.MemberCard, 0, len(rows))
	for i := range rows {
		cards = append(cards, rows[i].ToCard(admin))
	}
	return cards
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
