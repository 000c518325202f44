// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/dojo-hub/dojo-progression-engine/internal/domain/badge"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/belt"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/ledger"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/profile"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// Собирает геймификационный профиль студента из журнала очков: сумма,
// пояс, стрик, бейджи. Питает шапку дашборда и страницу геймификации.
// Профиль - чистая функция журнала; кеш инвалидируется на каждой записи.
// ══════════════════════════════════════════════════════════════════════════════

// GetProfileQuery содержит параметры запроса профиля.
type GetProfileQuery struct {
	// StudentID - идентификатор студента.
	StudentID string

	// SkipCache - принудительно пересчитать профиль из журнала.
	SkipCache bool
}

// Validate проверяет корректность параметров запроса.
func (q GetProfileQuery) Validate() error {
	if q.StudentID == "" {
		return fmt.Errorf("student_id is required")
	}
	return nil
}

// BadgeDTO - DTO выданного бейджа.
type BadgeDTO struct {
	// ID - идентификатор бейджа.
	ID string `json:"id"`

	// Name - отображаемое имя.
	Name string `json:"name"`

	// Description - описание бейджа.
	Description string `json:"description"`

	// AwardedAt - время выдачи.
	AwardedAt time.Time `json:"awarded_at"`
}

// GetProfileResult содержит собранный профиль студента.
type GetProfileResult struct {
	// StudentID - идентификатор студента.
	StudentID string `json:"student_id"`

	// TotalPoints - суммарные очки за всё время.
	TotalPoints int `json:"total_points"`

	// CurrentBelt - текущий пояс.
	CurrentBelt string `json:"current_belt"`

	// NextBelt - следующий пояс (пустая строка для чёрного).
	NextBelt string `json:"next_belt,omitempty"`

	// PointsToNextBelt - сколько очков не хватает до следующего пояса
	// (0 для чёрного пояса).
	PointsToNextBelt int `json:"points_to_next_belt"`

	// StreakDays - длина серии активных дней.
	StreakDays int `json:"streak_days"`

	// StreakAlive - жив ли стрик на момент запроса (активность сегодня
	// или вчера в отчётном часовом поясе).
	StreakAlive bool `json:"streak_alive"`

	// LastActivityDate - последняя квалифицирующая дата (null для
	// студента без событий).
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`

	// Badges - выданные бейджи, старые первыми.
	Badges []BadgeDTO `json:"badges"`

	// FromCache - профиль взят из кеша, а не пересчитан.
	FromCache bool `json:"-"`

	// ComputedAt - время вычисления профиля.
	ComputedAt time.Time `json:"computed_at"`
}

// GetProfileHandler обрабатывает запросы профиля.
type GetProfileHandler struct {
	ledgerRepo   ledger.Repository
	awardRepo    badge.AwardRepository
	catalog      badge.Catalog
	profileCache profile.Cache

	cacheTTL     time.Duration
	reportingLoc *time.Location
}

// GetProfileHandlerConfig содержит настройки обработчика.
type GetProfileHandlerConfig struct {
	CacheTTL          time.Duration
	ReportingLocation *time.Location
}

// DefaultGetProfileHandlerConfig возвращает настройки по умолчанию.
func DefaultGetProfileHandlerConfig() GetProfileHandlerConfig {
	return GetProfileHandlerConfig{
		CacheTTL:          5 * time.Minute,
		ReportingLocation: time.FixedZone("Asia/Almaty", 5*60*60),
	}
}

// NewGetProfileHandler создаёт новый обработчик запроса профиля.
func NewGetProfileHandler(
	ledgerRepo ledger.Repository,
	awardRepo badge.AwardRepository,
	catalog badge.Catalog,
	profileCache profile.Cache,
	config GetProfileHandlerConfig,
) *GetProfileHandler {
	if config.ReportingLocation == nil {
		config = DefaultGetProfileHandlerConfig()
	}

	return &GetProfileHandler{
		ledgerRepo:   ledgerRepo,
		awardRepo:    awardRepo,
		catalog:      catalog,
		profileCache: profileCache,
		cacheTTL:     config.CacheTTL,
		reportingLoc: config.ReportingLocation,
	}
}

// Handle выполняет запрос профиля.
// Студент без единого события - не ошибка: возвращается профиль по
// умолчанию (ноль очков, белый пояс, без стрика, без бейджей).
func (h *GetProfileHandler) Handle(ctx context.Context, query GetProfileQuery) (*GetProfileResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	core, fromCache, err := h.loadCore(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &GetProfileResult{
		StudentID:   core.StudentID,
		TotalPoints: core.TotalPoints,
		CurrentBelt: string(core.CurrentBelt),
		StreakDays:  core.StreakDays,
		FromCache:   fromCache,
		ComputedAt:  core.ComputedAt,
	}

	if tier, err := belt.ByName(core.CurrentBelt); err == nil {
		if next, ok := belt.Next(tier); ok {
			result.NextBelt = string(next.Name)
			result.PointsToNextBelt = belt.PointsToNext(core.TotalPoints)
		}
	}

	if core.HasActivity() {
		last := core.LastActivityDate
		result.LastActivityDate = &last
		current := streak.Streak{Days: core.StreakDays, LastActivityDate: core.LastActivityDate}
		result.StreakAlive = current.IsAlive(time.Now(), h.reportingLoc)
	}

	badges, err := h.loadBadges(ctx, query.StudentID)
	if err != nil {
		return nil, err
	}
	result.Badges = badges

	return result, nil
}

// loadCore возвращает ядро профиля (очки, пояс, стрик) из кеша или
// пересчитывает его из журнала.
func (h *GetProfileHandler) loadCore(ctx context.Context, query GetProfileQuery) (*profile.Profile, bool, error) {
	if h.profileCache != nil && !query.SkipCache {
		cached, err := h.profileCache.Get(ctx, query.StudentID)
		// Ошибка кеша не критична: падаем обратно на пересчёт.
		if err == nil && cached != nil {
			return cached, true, nil
		}
	}

	// Счётчик инвалидаций снимается строго до чтения журнала. Если между
	// пересчётом и Set конкурентная запись инвалидирует кеш, счётчик
	// сместится и Set отбросит уже устаревший профиль.
	var gen int64
	genOK := false
	if h.profileCache != nil {
		if g, err := h.profileCache.Generation(ctx, query.StudentID); err == nil {
			gen, genOK = g, true
		}
	}

	core, err := h.compute(ctx, query.StudentID)
	if err != nil {
		return nil, false, err
	}

	if h.profileCache != nil && genOK {
		_ = h.profileCache.Set(ctx, core, h.cacheTTL, gen)
	}

	return core, false, nil
}

// compute пересчитывает ядро профиля из журнала очков.
func (h *GetProfileHandler) compute(ctx context.Context, studentID string) (*profile.Profile, error) {
	total, err := h.ledgerRepo.SumByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get_profile: failed to sum points: %w", err)
	}

	timestamps, err := h.ledgerRepo.ListOccurredAt(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get_profile: failed to list timestamps: %w", err)
	}

	tier, err := belt.ForPoints(total)
	if err != nil {
		return nil, err
	}

	current := streak.FromTimestamps(timestamps, h.reportingLoc)

	return &profile.Profile{
		StudentID:        studentID,
		TotalPoints:      total,
		CurrentBelt:      tier.Name,
		StreakDays:       current.Days,
		LastActivityDate: current.LastActivityDate,
		ComputedAt:       time.Now().UTC(),
	}, nil
}

// loadBadges возвращает DTO выданных бейджей, обогащённые каталогом.
func (h *GetProfileHandler) loadBadges(ctx context.Context, studentID string) ([]BadgeDTO, error) {
	awards, err := h.awardRepo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get_profile: failed to list awards: %w", err)
	}

	dtos := make([]BadgeDTO, 0, len(awards))
	for _, a := range awards {
		dto := BadgeDTO{ID: a.BadgeID, AwardedAt: a.AwardedAt}
		// Бейдж, убранный из каталога, остаётся выданным: показываем
		// его с пустым именем, а не прячем и не падаем.
		if b, err := h.catalog.Get(a.BadgeID); err == nil {
			dto.Name = b.Name
			dto.Description = b.Description
		}
		dtos = append(dtos, dto)
	}

	return dtos, nil
}
